package aggregator

import (
	"math/rand"
	"testing"

	"cashflow/internal/core"
)

func TestAmountInInterval(t *testing.T) {
	tests := []struct {
		name  string
		item  core.Transaction
		start core.Date
		end   core.Date
		want  int64
	}{
		{
			name:  "yearly earning anchored years earlier",
			item:  core.Transaction{Amount: core.Money{Cents: 120000}, Date: core.NewDate(2020, 1, 1), IsRecurring: true, Period: core.Yearly},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 12, 31),
			want:  120000,
		},
		{
			name:  "monthly expense over a quarter",
			item:  core.Transaction{Amount: core.Money{Cents: 5000}, Date: core.NewDate(2023, 1, 15), IsRecurring: true, Period: core.Monthly},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  15000,
		},
		{
			name:  "weekly inside a month",
			item:  core.Transaction{Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1), IsRecurring: true, Period: core.Weekly},
			start: core.NewDate(2024, 1, 1),
			end:   core.NewDate(2024, 1, 31),
			want:  500,
		},
		{
			name:  "daily anchored before range",
			item:  core.Transaction{Amount: core.Money{Cents: 100}, Date: core.NewDate(2023, 12, 25), IsRecurring: true, Period: core.Daily},
			start: core.NewDate(2024, 1, 1),
			end:   core.NewDate(2024, 1, 31),
			want:  3100,
		},
		{
			name:  "daily over ten years",
			item:  core.Transaction{Amount: core.Money{Cents: 10}, Date: core.NewDate(2014, 1, 1), IsRecurring: true, Period: core.Daily},
			start: core.NewDate(2014, 1, 1),
			end:   core.NewDate(2023, 12, 31),
			want:  36520,
		},
		{
			name:  "recurring anchored inside range",
			item:  core.Transaction{Amount: core.Money{Cents: 5000}, Date: core.NewDate(2023, 2, 20), IsRecurring: true, Period: core.Monthly},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  10000,
		},
		{
			name:  "recurring anchored after range",
			item:  core.Transaction{Amount: core.Money{Cents: 5000}, Date: core.NewDate(2023, 5, 1), IsRecurring: true, Period: core.Monthly},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  0,
		},
		{
			name:  "one-off inside range",
			item:  core.Transaction{Amount: core.Money{Cents: 999}, Date: core.NewDate(2023, 3, 31)},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  999,
		},
		{
			name:  "one-off before range",
			item:  core.Transaction{Amount: core.Money{Cents: 999}, Date: core.NewDate(2022, 12, 31)},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  0,
		},
		{
			name:  "start after end",
			item:  core.Transaction{Amount: core.Money{Cents: 999}, Date: core.NewDate(2023, 2, 1)},
			start: core.NewDate(2023, 3, 31),
			end:   core.NewDate(2023, 1, 1),
			want:  0,
		},
		{
			name:  "unknown period",
			item:  core.Transaction{Amount: core.Money{Cents: 999}, Date: core.NewDate(2023, 1, 1), IsRecurring: true, Period: "hourly"},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  0,
		},
		{
			name:  "recurring without period",
			item:  core.Transaction{Amount: core.Money{Cents: 999}, Date: core.NewDate(2023, 1, 1), IsRecurring: true},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 3, 31),
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountInInterval(tt.item, tt.start, tt.end)
			if got.Cents != tt.want {
				t.Errorf("AmountInInterval() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestAmountInInterval_WalkStartsAtRangeStart(t *testing.T) {
	tests := []struct {
		name       string
		item       core.Transaction
		start, end core.Date
		want       int64
	}{
		{
			name:  "monthly range starting mid-cycle",
			item:  core.Transaction{Amount: core.Money{Cents: 5000}, Date: core.NewDate(2023, 1, 15), IsRecurring: true, Period: core.Monthly},
			start: core.NewDate(2023, 1, 20),
			end:   core.NewDate(2023, 1, 31),
			want:  5000,
		},
		{
			name:  "weekly range starting between occurrences",
			item:  core.Transaction{Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 1), IsRecurring: true, Period: core.Weekly},
			start: core.NewDate(2024, 1, 10),
			end:   core.NewDate(2024, 1, 23),
			want:  200,
		},
		{
			name:  "yearly range inside a year",
			item:  core.Transaction{Amount: core.Money{Cents: 120000}, Date: core.NewDate(2020, 1, 1), IsRecurring: true, Period: core.Yearly},
			start: core.NewDate(2023, 6, 1),
			end:   core.NewDate(2023, 6, 30),
			want:  120000,
		},
		{
			name:  "month-end anchor drifts to the 28th",
			item:  core.Transaction{Amount: core.Money{Cents: 250}, Date: core.NewDate(2023, 1, 31), IsRecurring: true, Period: core.Monthly},
			start: core.NewDate(2023, 1, 1),
			end:   core.NewDate(2023, 12, 28),
			want:  12 * 250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AmountInInterval(tt.item, tt.start, tt.end); got.Cents != tt.want {
				t.Errorf("AmountInInterval() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestAmountInInterval_DistantDates(t *testing.T) {
	item := core.Transaction{Amount: core.Money{Cents: 1}, Date: core.NewDate(2000, 1, 1), IsRecurring: true, Period: core.Daily}

	if got := AmountInInterval(item, core.NewDate(9999, 1, 1), core.NewDate(9999, 1, 31)); got.Cents != 31 {
		t.Errorf("January 9999 = %d, want 31", got.Cents)
	}

	series := MonthlySeries([]core.Transaction{item}, nil, core.NewDate(9999, 1, 1), core.NewDate(9999, 12, 31))
	var total int64
	for _, m := range series {
		total += m.Expenses.Cents
	}
	if len(series) != 12 || total != 365 {
		t.Errorf("9999 series: %d months totalling %d, want 12 and 365", len(series), total)
	}

	all := AmountInInterval(item, core.NewDate(1, 1, 1), core.NewDate(9999, 12, 31))
	want := DailyStepper{}.Estimate(core.NewDate(2000, 1, 1).Time, core.NewDate(9999, 12, 31).Time) + 1
	if all.Cents != int64(want) {
		t.Errorf("whole calendar = %d, want %d", all.Cents, want)
	}
}

func TestTotalForPeriod_OrderIndependent(t *testing.T) {
	items := []core.Transaction{
		{Amount: core.Money{Cents: 1999}, Date: core.NewDate(2023, 1, 15), IsRecurring: true, Period: core.Monthly},
		{Amount: core.Money{Cents: 333}, Date: core.NewDate(2022, 6, 1), IsRecurring: true, Period: core.Weekly},
		{Amount: core.Money{Cents: 1}, Date: core.NewDate(2023, 3, 3), IsRecurring: true, Period: core.Daily},
		{Amount: core.Money{Cents: 120000}, Date: core.NewDate(2020, 7, 1), IsRecurring: true, Period: core.Yearly},
		{Amount: core.Money{Cents: 4550}, Date: core.NewDate(2023, 8, 8)},
		{Amount: core.Money{Cents: 10}, Date: core.NewDate(2024, 8, 8)},
	}
	start, end := core.NewDate(2023, 1, 1), core.NewDate(2023, 12, 31)

	want := TotalForPeriod(items, start, end)
	if want.Cents == 0 {
		t.Fatal("TotalForPeriod() = 0, want a non-zero total")
	}

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]core.Transaction(nil), items...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := TotalForPeriod(shuffled, start, end); got != want {
			t.Fatalf("TotalForPeriod(shuffled) = %d, want %d", got.Cents, want.Cents)
		}
	}
}

func TestTotalForPeriod_Empty(t *testing.T) {
	if got := TotalForPeriod(nil, core.NewDate(2023, 1, 1), core.NewDate(2023, 12, 31)); got.Cents != 0 {
		t.Errorf("TotalForPeriod(nil) = %d, want 0", got.Cents)
	}
}

func TestTotalForPeriod_SaturatesLargeAmounts(t *testing.T) {
	big := core.Transaction{Amount: core.Money{Cents: 1 << 50}, Date: core.NewDate(2000, 1, 1), IsRecurring: true, Period: core.Daily}
	start, end := core.NewDate(2000, 1, 1), core.NewDate(2099, 12, 31)

	one := TotalForPeriod([]core.Transaction{big}, start, end)
	if one.Cents <= 0 {
		t.Fatalf("TotalForPeriod(big) = %d, want a positive saturated total", one.Cents)
	}
	if ceiling := (core.Money{Cents: 1 << 62}).Times(4); one != ceiling {
		t.Errorf("TotalForPeriod(big) = %d, want ceiling %d", one.Cents, ceiling.Cents)
	}
	if two := TotalForPeriod([]core.Transaction{big, big}, start, end); two != one {
		t.Errorf("TotalForPeriod(big, big) = %d, want %d", two.Cents, one.Cents)
	}
}
