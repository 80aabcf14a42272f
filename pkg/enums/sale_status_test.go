package enums

import "testing"

func TestSaleStatusOrdering(t *testing.T) {
	if !SaleStatusConfirmed.AtLeast(SaleStatusPending) {
		t.Fatal("confirmed should rank at least pending")
	}
	if SaleStatusPending.AtLeast(SaleStatusConfirmed) {
		t.Fatal("pending should rank below confirmed")
	}
	if !SaleStatusPaid.AtLeast(SaleStatusPaid) {
		t.Fatal("a status should rank at least itself")
	}
	if SaleStatus("bogus").AtLeast(SaleStatusIncomplete) {
		t.Fatal("unknown statuses should rank below every valid status")
	}
}

func TestSaleStatusesAtLeast(t *testing.T) {
	got := SaleStatusesAtLeast(SaleStatusConfirmed)
	want := []SaleStatus{SaleStatusConfirmed, SaleStatusReadyForPayment, SaleStatusPaid}
	if len(got) != len(want) {
		t.Fatalf("expected %d statuses, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %s at position %d, got %s", want[i], i, got[i])
		}
	}
}

func TestParseSaleStatus(t *testing.T) {
	status, err := ParseSaleStatus("ready_for_payment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != SaleStatusReadyForPayment {
		t.Fatalf("unexpected status %s", status)
	}
	if _, err := ParseSaleStatus("unknown"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestPaidStateLocked(t *testing.T) {
	if PaidStatePending.Locked() {
		t.Fatal("pending earnings are not locked")
	}
	if !PaidStateReady.Locked() {
		t.Fatal("ready earnings are locked")
	}
	if !PaidStateComplete.Locked() {
		t.Fatal("complete earnings are locked")
	}
}
