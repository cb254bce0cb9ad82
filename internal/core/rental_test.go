package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"labstock/pkg/domain"
)

func TestRentReturnRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	unit := seedUnits(t, svc, product.ID, shelfA, 1)[0]
	due := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	records, err := svc.Rent(ctx, RentRequest{StockID: unit.ID, Renter: "kim", Borrower: "lee", LoanType: domain.LoanShortTerm, DueDate: due})
	if err != nil {
		t.Fatalf("rent: %v", err)
	}
	if len(records) != 1 || records[0].StockID != unit.ID || records[0].DueDate != due {
		t.Fatalf("records = %+v", records)
	}

	entries, err := svc.StockList(ctx)
	if err != nil {
		t.Fatalf("stock list: %v", err)
	}
	if entries[0].Unit.CurrentStatus != domain.StatusShortTerm {
		t.Fatalf("status = %s", entries[0].Unit.CurrentStatus)
	}

	// the unit is out, a second loan must fail
	_, err = svc.Rent(ctx, RentRequest{StockID: unit.ID, Renter: "park", Borrower: "park", LoanType: domain.LoanShortTerm, DueDate: due})
	if code := errCode(t, err); code != domain.CodeNotInStock {
		t.Fatalf("code = %s", code)
	}

	returned, err := svc.Return(ctx, ReturnRequest{RentalID: records[0].ID})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if len(returned) != 1 || returned[0].ReturnDate == nil {
		t.Fatalf("returned = %+v", returned)
	}

	entries, err = svc.StockList(ctx)
	if err != nil {
		t.Fatalf("stock list: %v", err)
	}
	if entries[0].Unit.CurrentStatus != domain.StatusInStock {
		t.Fatalf("status after return = %s", entries[0].Unit.CurrentStatus)
	}

	_, err = svc.Return(ctx, ReturnRequest{RentalID: records[0].ID})
	if code := errCode(t, err); code != domain.CodeAlreadyReturned {
		t.Fatalf("code = %s", code)
	}
}

func TestRentDispatchesOnAccountingMode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	pooled := seedProduct(t, svc, "BNC Cable", domain.ModePooled)
	property := seedProduct(t, svc, "Spectrum Analyzer", domain.ModePropertyManaged)
	pooledUnit := seedUnits(t, svc, pooled.ID, shelfA, 1)[0]
	seedUnits(t, svc, property.ID, shelfA, 1)
	due := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	// pooled product addressed by unit id
	_, err := svc.Rent(ctx, RentRequest{StockID: pooledUnit.ID, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if code := errCode(t, err); code != domain.CodeNotPropertyManaged {
		t.Fatalf("code = %s", code)
	}

	// property-managed product addressed by quantity
	_, err = svc.Rent(ctx, RentRequest{ProductID: property.ID, LocationID: shelfA, Quantity: 1, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if code := errCode(t, err); code != domain.CodeIsPropertyManaged {
		t.Fatalf("code = %s", code)
	}
}

func TestRentLocationMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, shelfB := seedTree(t, svc)
	product := seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	unit := seedUnits(t, svc, product.ID, shelfA, 1)[0]
	due := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	_, err := svc.Rent(ctx, RentRequest{StockID: unit.ID, LocationID: shelfB, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if code := errCode(t, err); code != domain.CodeLocationMismatch {
		t.Fatalf("code = %s", code)
	}
}

func TestPooledRentConsumesOldestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "BNC Cable", domain.ModePooled)
	units := seedUnits(t, svc, product.ID, shelfA, 3)
	due := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	records, err := svc.Rent(ctx, RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 2, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if err != nil {
		t.Fatalf("rent: %v", err)
	}
	if len(records) != 2 || records[0].StockID != units[0].ID || records[1].StockID != units[1].ID {
		t.Fatalf("records = %+v", records)
	}

	// only one unit left; a two-unit loan reports availability
	_, err = svc.Rent(ctx, RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 2, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	var short domain.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("err = %v", err)
	}
	if short.Requested != 2 || short.Available != 1 {
		t.Fatalf("short = %+v", short)
	}
	assertConservation(t, svc)
}

func TestPooledBulkReturnMatchesTuple(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "BNC Cable", domain.ModePooled)
	seedUnits(t, svc, product.ID, shelfA, 4)
	due := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	if _, err := svc.Rent(ctx, RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 2, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due}); err != nil {
		t.Fatalf("rent kim: %v", err)
	}
	if _, err := svc.Rent(ctx, RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 1, Renter: "park", Borrower: "park", LoanType: domain.LoanShortTerm, DueDate: due}); err != nil {
		t.Fatalf("rent park: %v", err)
	}

	// a different borrower never matches another tuple's loans
	_, err := svc.Return(ctx, ReturnRequest{ProductID: product.ID, LocationID: shelfA, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, Quantity: 3})
	var short domain.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("err = %v", err)
	}
	if short.Available != 2 {
		t.Fatalf("short = %+v", short)
	}

	returned, err := svc.Return(ctx, ReturnRequest{ProductID: product.ID, LocationID: shelfA, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, Quantity: 2})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if len(returned) != 2 {
		t.Fatalf("returned %d records", len(returned))
	}

	out, err := svc.OutstandingRentalsView(ctx)
	if err != nil {
		t.Fatalf("outstanding: %v", err)
	}
	if len(out.Groups) != 1 || out.Groups[0].Renter != "park" || out.Groups[0].Quantity != 1 {
		t.Fatalf("groups = %+v", out.Groups)
	}
}

func TestRentValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "BNC Cable", domain.ModePooled)
	seedUnits(t, svc, product.ID, shelfA, 1)
	due := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  RentRequest
	}{
		{"missing renter", RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 1, Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due}},
		{"bad loan type", RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 1, Renter: "kim", Borrower: "kim", LoanType: "weekend", DueDate: due}},
		{"zero due date", RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 1, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm}},
		{"zero quantity", RentRequest{ProductID: product.ID, LocationID: shelfA, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Rent(ctx, tc.req)
			if code := errCode(t, err); code != domain.CodeMissingFields {
				t.Fatalf("code = %s", code)
			}
		})
	}
}

func TestSingleReturnRejectsPooledRental(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "BNC Cable", domain.ModePooled)
	seedUnits(t, svc, product.ID, shelfA, 1)
	due := clock.Now().Add(24 * time.Hour)

	rentals, err := svc.Rent(ctx, RentRequest{ProductID: product.ID, LocationID: shelfA, Quantity: 1, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if err != nil {
		t.Fatalf("rent: %v", err)
	}

	_, err = svc.Return(ctx, ReturnRequest{RentalID: rentals[0].ID})
	if code := errCode(t, err); code != domain.CodeNotPropertyManaged {
		t.Fatalf("code = %s", code)
	}

	// the tuple path still closes it
	records, err := svc.Return(ctx, ReturnRequest{ProductID: product.ID, LocationID: shelfA, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, Quantity: 1})
	if err != nil || len(records) != 1 {
		t.Fatalf("bulk return = %v err = %v", records, err)
	}
}

func TestReturnStampsSuppliedDate(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	unit := seedUnits(t, svc, product.ID, shelfA, 1)[0]
	due := clock.Now().Add(24 * time.Hour)

	rentals, err := svc.Rent(ctx, RentRequest{StockID: unit.ID, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if err != nil {
		t.Fatalf("rent: %v", err)
	}

	at := clock.Now().Add(2 * time.Hour)
	records, err := svc.Return(ctx, ReturnRequest{RentalID: rentals[0].ID, ReturnDate: &at})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if records[0].ReturnDate == nil || !records[0].ReturnDate.Equal(at) {
		t.Fatalf("return date = %v, want %v", records[0].ReturnDate, at)
	}
}

func TestExtendRental(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	shelfA, _ := seedTree(t, svc)
	product := seedProduct(t, svc, "Oscilloscope", domain.ModePropertyManaged)
	unit := seedUnits(t, svc, product.ID, shelfA, 1)[0]
	due := clock.Now().Add(2 * time.Hour)

	records, err := svc.Rent(ctx, RentRequest{StockID: unit.ID, Renter: "kim", Borrower: "kim", LoanType: domain.LoanShortTerm, DueDate: due})
	if err != nil {
		t.Fatalf("rent: %v", err)
	}
	rentalID := records[0].ID

	// default extension adds three hours on top of the current due date
	updated, err := svc.ExtendRental(ctx, ExtendRequest{RentalID: rentalID})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if want := due.Add(3 * time.Hour); !updated.DueDate.Equal(want) {
		t.Fatalf("due = %v want %v", updated.DueDate, want)
	}

	// an overdue loan extends from now, not from the stale due date
	clock.Advance(12 * time.Hour)
	updated, err = svc.ExtendRental(ctx, ExtendRequest{RentalID: rentalID, AddHours: 2})
	if err != nil {
		t.Fatalf("extend overdue: %v", err)
	}
	if want := clock.Now().Add(2 * time.Hour); !updated.DueDate.Equal(want) {
		t.Fatalf("due = %v want %v", updated.DueDate, want)
	}

	// an explicit due date is taken verbatim
	explicit := clock.Now().Add(30 * time.Minute)
	updated, err = svc.ExtendRental(ctx, ExtendRequest{RentalID: rentalID, DueDate: &explicit})
	if err != nil {
		t.Fatalf("extend explicit: %v", err)
	}
	if !updated.DueDate.Equal(explicit) {
		t.Fatalf("due = %v want %v", updated.DueDate, explicit)
	}

	if _, err := svc.Return(ctx, ReturnRequest{RentalID: rentalID}); err != nil {
		t.Fatalf("return: %v", err)
	}
	_, err = svc.ExtendRental(ctx, ExtendRequest{RentalID: rentalID})
	if code := errCode(t, err); code != domain.CodeAlreadyReturned {
		t.Fatalf("code = %s", code)
	}
}

func TestExtendMissingRental(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ExtendRental(context.Background(), ExtendRequest{RentalID: "nope"})
	if code := errCode(t, err); code != domain.CodeRentalNotFound {
		t.Fatalf("code = %s", code)
	}
}
