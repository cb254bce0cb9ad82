package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"labstock/internal/blob"
	"labstock/pkg/domain"
)

// ProductInput carries the caller-supplied fields for catalog writes.
type ProductInput struct {
	Name           string                `json:"name"`
	Brand          string                `json:"brand"`
	Model          string                `json:"model"`
	Specifications string                `json:"specifications"`
	Price          float64               `json:"price"`
	Mode           domain.AccountingMode `json:"accounting_mode"`
	ImageLink      string                `json:"image_link"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Brand) == "" || strings.TrimSpace(in.Model) == "" {
		return domain.ValidationError{Code: domain.CodeMissingFields, Message: "name, brand and model are required"}
	}
	if !in.Mode.Valid() {
		return domain.ValidationError{Code: domain.CodeInvalidMode, Message: fmt.Sprintf("unknown accounting mode %q", in.Mode)}
	}
	return nil
}

func duplicateProduct(view TransactionView, brand, model, excludeID string) bool {
	for _, p := range view.ListProducts() {
		if p.ID == excludeID {
			continue
		}
		if strings.EqualFold(p.Brand, brand) && strings.EqualFold(p.Model, model) {
			return true
		}
	}
	return false
}

// CreateProduct registers a new catalog product. Brand+model pairs are unique
// case-insensitively. When an image link is supplied the image is fetched and
// stored through the blob store; a fetch failure leaves the product without a
// stored image rather than failing the operation.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	var created Product
	_, err := s.run(ctx, "create_product", func(tx Transaction) error {
		if err := input.validate(); err != nil {
			return err
		}
		if duplicateProduct(tx.Snapshot(), input.Brand, input.Model, "") {
			return domain.ValidationError{Code: domain.CodeDuplicateProduct, Message: fmt.Sprintf("product %s %s already exists", input.Brand, input.Model)}
		}
		var err error
		created, err = tx.CreateProduct(Product{
			Name:           strings.TrimSpace(input.Name),
			Brand:          strings.TrimSpace(input.Brand),
			Model:          strings.TrimSpace(input.Model),
			Specifications: input.Specifications,
			Price:          input.Price,
			Mode:           input.Mode,
			ImageLink:      strings.TrimSpace(input.ImageLink),
		})
		return err
	})
	if err != nil {
		return Product{}, err
	}
	if created.ImageLink != "" && s.blobs != nil {
		if key, ok := s.storeImage(ctx, created.ID, created.ImageLink); ok {
			updated, _, uerr := s.updateProductImage(ctx, created.ID, key)
			if uerr == nil {
				created = updated
			}
		}
	}
	return created, nil
}

// storeImage downloads the linked image into the blob store. Best effort.
func (s *Service) storeImage(ctx context.Context, productID, link string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		s.opts.logger.Warn("image link rejected", "product_id", productID, "error", err)
		return "", false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.opts.logger.Warn("image fetch failed", "product_id", productID, "error", err)
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		s.opts.logger.Warn("image fetch failed", "product_id", productID, "status", resp.StatusCode)
		return "", false
	}
	key := fmt.Sprintf("products/%s/image", productID)
	_, err = s.blobs.Put(ctx, key, io.LimitReader(resp.Body, 32<<20), blob.PutOptions{
		ContentType: resp.Header.Get("Content-Type"),
		Metadata:    map[string]string{"source": link},
	})
	if err != nil {
		s.opts.logger.Warn("image store failed", "product_id", productID, "error", err)
		return "", false
	}
	return key, true
}

func (s *Service) updateProductImage(ctx context.Context, id, key string) (Product, Result, error) {
	var updated Product
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProduct(id, func(p *Product) error {
			p.ImageKey = key
			return nil
		})
		return err
	})
	return updated, res, err
}

// UpdateProduct mutates catalog fields. The accounting mode is frozen once
// stock references the product; brand+model stays unique.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (Product, error) {
	var updated Product
	_, err := s.run(ctx, "update_product", func(tx Transaction) error {
		if err := input.validate(); err != nil {
			return err
		}
		snap := tx.Snapshot()
		current, ok := snap.FindProduct(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
		}
		if duplicateProduct(snap, input.Brand, input.Model, id) {
			return domain.ValidationError{Code: domain.CodeDuplicateProduct, Message: fmt.Sprintf("product %s %s already exists", input.Brand, input.Model)}
		}
		if input.Mode != current.Mode && productReferenced(snap, id) {
			return domain.InvalidStateError{
				Code:    domain.CodeProductInUse,
				Entity:  domain.EntityProduct,
				ID:      id,
				Message: "accounting mode cannot change while stock references the product",
			}
		}
		var err error
		updated, err = tx.UpdateProduct(id, func(p *Product) error {
			p.Name = strings.TrimSpace(input.Name)
			p.Brand = strings.TrimSpace(input.Brand)
			p.Model = strings.TrimSpace(input.Model)
			p.Specifications = input.Specifications
			p.Price = input.Price
			p.Mode = input.Mode
			p.ImageLink = strings.TrimSpace(input.ImageLink)
			return nil
		})
		return err
	})
	return updated, err
}

func productReferenced(view TransactionView, productID string) bool {
	for _, unit := range view.ListStockUnits() {
		if unit.ProductID == productID {
			return true
		}
	}
	return false
}

// DeleteProduct removes a product. Refused while any stock unit, including
// discarded history, still references it.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.run(ctx, "delete_product", func(tx Transaction) error {
		snap := tx.Snapshot()
		if _, ok := snap.FindProduct(id); !ok {
			return domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
		}
		if productReferenced(snap, id) {
			return domain.InvalidStateError{
				Code:    domain.CodeProductInUse,
				Entity:  domain.EntityProduct,
				ID:      id,
				Message: "product is referenced by stock units",
			}
		}
		return tx.DeleteProduct(id)
	})
	return err
}

// GetProduct returns one product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	var product Product
	err := s.view(ctx, "get_product", func(v TransactionView) error {
		p, ok := v.FindProduct(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
		}
		product = p
		return nil
	})
	return product, err
}

// ListProducts returns the catalog in insertion order.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.view(ctx, "list_products", func(v TransactionView) error {
		products = v.ListProducts()
		return nil
	})
	return products, err
}

// StockRequest asks for quantity units of one product at one location.
type StockRequest struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

// AddStock creates stock units for a batch of requests. The whole batch is
// validated before any unit is created; property-managed requests must carry
// quantity 1 since each unit is individually identified.
func (s *Service) AddStock(ctx context.Context, requests []StockRequest) ([]StockUnit, error) {
	var created []StockUnit
	_, err := s.run(ctx, "add_stock", func(tx Transaction) error {
		if len(requests) == 0 {
			return domain.ValidationError{Code: domain.CodeMissingFields, Message: "at least one stock request required"}
		}
		snap := tx.Snapshot()
		counts := domain.LocationChildCounts(snap.LocationTree())
		for _, req := range requests {
			product, ok := snap.FindProduct(req.ProductID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityProduct, ID: req.ProductID}
			}
			if req.Quantity < 1 {
				return domain.ValidationError{Code: domain.CodeMissingFields, Message: "quantity must be at least 1"}
			}
			if product.Mode == domain.ModePropertyManaged && req.Quantity != 1 {
				return domain.ModeMismatchError{Code: domain.CodeIsPropertyManaged, ProductID: product.ID}
			}
			children, present := counts[req.LocationID]
			if !present {
				return domain.NotFoundError{Entity: domain.EntityLocationTree, ID: req.LocationID}
			}
			if children > 0 {
				return domain.InvalidStateError{
					Code:    domain.CodeLeafRuleViolation,
					Entity:  domain.EntityLocationTree,
					ID:      req.LocationID,
					Message: "stock can only be placed at leaf locations",
				}
			}
		}
		for _, req := range requests {
			for i := 0; i < req.Quantity; i++ {
				unit, err := tx.CreateStockUnit(StockUnit{
					ProductID:     req.ProductID,
					LocationID:    req.LocationID,
					CurrentStatus: domain.StatusInStock,
				})
				if err != nil {
					return err
				}
				created = append(created, unit)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
