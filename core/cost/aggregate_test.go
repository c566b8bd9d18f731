package cost

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"cloudbudget/core/rates"
	"cloudbudget/core/structure"
)

func testTable() rates.Table {
	return rates.Table{
		"ec2":    {Cost: decimal.RequireFromString("20.00"), Kind: rates.KindPerMonth},
		"lambda": {Cost: decimal.RequireFromString("0.0002"), Kind: rates.KindPerRequest},
		"rds":    {Cost: decimal.RequireFromString("35.50"), Kind: rates.KindPerMonth},
	}
}

func one() decimal.Decimal { return decimal.NewFromInt(1) }

func TestAggregateMixedKinds(t *testing.T) {
	usage := structure.Usage{
		"ec2":    {Quantity: 1, Multiplier: one()},
		"lambda": {Quantity: 1, Multiplier: one()},
	}

	total, breakdown := Aggregate(usage, testTable(), 5000)

	if total.String() != "21" {
		t.Fatalf("total = %s, want 21", total)
	}
	if got := breakdown["ec2"].String(); got != "20" {
		t.Errorf("ec2 contribution = %s, want 20", got)
	}
	if got := breakdown["lambda"].String(); got != "1" {
		t.Errorf("lambda contribution = %s, want 1", got)
	}
}

func TestAggregateEmptyUsage(t *testing.T) {
	total, breakdown := Aggregate(structure.Usage{}, testTable(), 12345)
	if !total.IsZero() {
		t.Errorf("total = %s, want 0", total)
	}
	if len(breakdown) != 0 {
		t.Errorf("breakdown = %v, want empty", breakdown)
	}
}

func TestAggregateUnknownTypeContributesNothing(t *testing.T) {
	usage := structure.Usage{"mystery_service": {Quantity: 5, Multiplier: one()}}

	total, breakdown := Aggregate(usage, testTable(), 1000)

	if !total.IsZero() {
		t.Errorf("total = %s, want 0", total)
	}
	if _, ok := breakdown["mystery_service"]; ok {
		t.Error("unknown type must be omitted from the breakdown")
	}
}

func TestAggregateZeroVolumeExcludesPerRequest(t *testing.T) {
	usage := structure.Usage{
		"ec2":    {Quantity: 2, Multiplier: one()},
		"lambda": {Quantity: 1, Multiplier: one()},
	}

	outcome := AggregateDetailed(usage, testTable(), 0)

	if !outcome.PerRequest.IsZero() {
		t.Errorf("per-request portion = %s, want 0", outcome.PerRequest)
	}
	if outcome.Total.String() != "40" {
		t.Errorf("total = %s, want 40", outcome.Total)
	}
}

func TestAggregateMonotoneInVolume(t *testing.T) {
	usage := structure.Usage{
		"ec2":    {Quantity: 1, Multiplier: one()},
		"lambda": {Quantity: 1, Multiplier: one()},
	}
	table := testTable()

	prev := decimal.Zero
	for _, volume := range []int{0, 1, 10, 1000, 100000} {
		total, _ := Aggregate(usage, table, volume)
		if total.LessThan(prev) {
			t.Fatalf("total decreased from %s to %s at volume %d", prev, total, volume)
		}
		prev = total
	}
}

func TestAggregateSumConsistency(t *testing.T) {
	usage := structure.Usage{
		"ec2":    {Quantity: 3, Multiplier: one()},
		"rds":    {Quantity: 2, Multiplier: one()},
		"lambda": {Quantity: 1, Multiplier: decimal.RequireFromString("1.5")},
	}

	total, breakdown := Aggregate(usage, testTable(), 7777)

	sum := decimal.Zero
	for _, c := range breakdown {
		sum = sum.Add(c)
	}
	if !sum.Equal(total) {
		t.Fatalf("breakdown sum %s != total %s", sum, total)
	}
}

func TestAggregateClampsNegativeQuantity(t *testing.T) {
	usage := structure.Usage{
		"ec2":    {Quantity: -4, Multiplier: one()},
		"lambda": {Quantity: 1, Multiplier: decimal.NewFromInt(-2)},
	}

	total, _ := Aggregate(usage, testTable(), 1000)

	if total.IsNegative() {
		t.Fatalf("total = %s, must never be negative", total)
	}
	if !total.IsZero() {
		t.Fatalf("total = %s, want 0 after clamping", total)
	}
}

func TestAggregateNegativeVolumeTreatedAsZero(t *testing.T) {
	usage := structure.Usage{"lambda": {Quantity: 1, Multiplier: one()}}
	total, _ := Aggregate(usage, testTable(), -10)
	if !total.IsZero() {
		t.Errorf("total = %s, want 0", total)
	}
}

// Exact decimal arithmetic must not drift across many chained months.
func TestAggregateNoDriftAcrossMonths(t *testing.T) {
	usage := structure.Usage{"lambda": {Quantity: 1, Multiplier: one()}}
	table := testTable()

	sum := decimal.Zero
	for month := 0; month < 1200; month++ {
		total, _ := Aggregate(usage, table, 1)
		sum = sum.Add(total)
	}
	// 1200 months at 0.0002 each.
	if sum.String() != "0.24" {
		t.Fatalf("chained sum = %s, want 0.24", sum)
	}
}

// Aggregate is pure: concurrent calls over shared immutable inputs agree.
func TestAggregateConcurrent(t *testing.T) {
	usage := structure.Usage{
		"ec2":    {Quantity: 2, Multiplier: one()},
		"lambda": {Quantity: 1, Multiplier: one()},
	}
	table := testTable()

	want, _ := Aggregate(usage, table, 5000)

	var wg sync.WaitGroup
	results := make([]decimal.Decimal, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Aggregate(usage, table, 5000)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !got.Equal(want) {
			t.Fatalf("result %d = %s, want %s", i, got, want)
		}
	}
}
