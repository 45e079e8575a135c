package records

import (
	"sync"
	"testing"

	"mealtrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft(date string, meal core.Meal, content string, calories int) core.Draft {
	return core.Draft{Date: date, Meal: meal, Content: content, Calories: calories}
}

func mustCreate(t *testing.T, s *Store, d core.Draft) core.Record {
	t.Helper()
	r, err := s.Create(d)
	require.NoError(t, err)
	return r
}

func TestCreatePrependsAndAssignsIDs(t *testing.T) {
	s := New()
	a := mustCreate(t, s, draft("2024-03-01", core.Breakfast, "Eggs", 300))
	b := mustCreate(t, s, draft("2024-03-01", core.Lunch, "Salad", 350))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID, "newest record first")
	assert.Equal(t, a.ID, all[1].ID)
	assert.True(t, all[0].Date.Equal(core.NewDate(2024, 3, 1)))
}

func TestCreateContinuesFromSeed(t *testing.T) {
	seed := []core.Record{
		{ID: 1, Date: core.NewDate(2023, 3, 1), Meal: core.Breakfast, Content: "Eggs Benedict", Calories: 450},
		{ID: 4, Date: core.NewDate(2023, 3, 4), Meal: core.Snack, Content: "Dark Chocolate", Calories: 200},
	}
	s := New(WithSeed(seed...))
	assert.Equal(t, int64(5), s.NextID())

	var prev int64 = 4
	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		r := mustCreate(t, s, draft("2023-03-05", core.Snack, "Nuts", 100))
		assert.Greater(t, r.ID, prev)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
		prev = r.ID
	}
	assert.Len(t, seen, 10)
	assert.Equal(t, 12, s.Len())
}

func TestCreateWithExplicitNextID(t *testing.T) {
	s := New(WithNextID(100))
	r := mustCreate(t, s, draft("2024-01-01", core.Dinner, "Soup", 250))
	assert.Equal(t, int64(100), r.ID)
}

func TestNextIDNeverReusesSeededIDs(t *testing.T) {
	seed := []core.Record{
		{ID: 7, Date: core.NewDate(2023, 3, 2), Meal: core.Lunch, Content: "Soup", Calories: 200},
		{ID: 3, Date: core.NewDate(2023, 3, 1), Meal: core.Dinner, Content: "Stew", Calories: 600},
	}

	tests := []struct {
		name string
		opts []Option
		want int64
	}{
		{"below highest seed", []Option{WithSeed(seed...), WithNextID(2)}, 8},
		{"equal to highest seed", []Option{WithSeed(seed...), WithNextID(7)}, 8},
		{"zero", []Option{WithSeed(seed...), WithNextID(0)}, 8},
		{"option before seed", []Option{WithNextID(5), WithSeed(seed...)}, 8},
		{"above highest seed", []Option{WithSeed(seed...), WithNextID(20)}, 20},
		{"empty store", []Option{WithNextID(-3)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.opts...)
			assert.Equal(t, tt.want, s.NextID())

			r := mustCreate(t, s, draft("2023-03-03", core.Snack, "Nuts", 100))
			assert.Equal(t, tt.want, r.ID)
			for _, other := range s.All()[1:] {
				assert.NotEqual(t, r.ID, other.ID)
			}
		})
	}
}

func TestVersionChangesOnCreate(t *testing.T) {
	s := New()
	v0 := s.Version()

	_, err := s.Create(draft("bad", core.Lunch, "Salad", 350))
	require.Error(t, err)
	assert.Equal(t, v0, s.Version(), "failed create keeps the version")

	mustCreate(t, s, draft("2024-03-01", core.Lunch, "Salad", 350))
	v1 := s.Version()
	assert.NotEqual(t, v0, v1)

	s.FilterByDate(core.NewDate(2024, 3, 1))
	assert.Equal(t, v1, s.Version(), "reads keep the version")
}

func TestCreateInvalidDateLeavesStoreUnchanged(t *testing.T) {
	s := New()
	_, err := s.Create(draft("03/01/2024", core.Lunch, "Salad", 350))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidDateFormat)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(1), s.NextID(), "failed create must not consume an id")
}

func TestCreateAllowsDuplicates(t *testing.T) {
	s := New()
	d := draft("2024-03-01", core.Snack, "Apple", 95)
	a := mustCreate(t, s, d)
	b := mustCreate(t, s, d)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestCreateCopiesRating(t *testing.T) {
	s := New()
	rating := 4
	d := draft("2024-03-01", core.Lunch, "Ramen", 600)
	d.Rating = &rating
	r := mustCreate(t, s, d)
	rating = 1
	require.NotNil(t, r.Rating)
	assert.Equal(t, 4, *r.Rating)
}

func TestFilterByDate(t *testing.T) {
	s := New()
	first := mustCreate(t, s, draft("2024-03-01", core.Breakfast, "Oats", 300))
	mustCreate(t, s, draft("2024-03-02", core.Lunch, "Wrap", 500))
	second := mustCreate(t, s, draft("2024-03-01", core.Dinner, "Fish", 600))

	got := s.FilterByDate(core.NewDate(2024, 3, 1))
	require.Len(t, got, 2)
	// store order is most recent first
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	assert.Empty(t, s.FilterByDate(core.NewDate(2024, 3, 3)))
}

func TestFilterByDatePreservesSeedOrder(t *testing.T) {
	s := New(WithSeed(
		core.Record{ID: 1, Date: core.NewDate(2024, 3, 1), Content: "a"},
		core.Record{ID: 2, Date: core.NewDate(2024, 3, 2), Content: "b"},
		core.Record{ID: 3, Date: core.NewDate(2024, 3, 1), Content: "c"},
	))
	got := s.FilterByDate(core.NewDate(2024, 3, 1))
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestGroupByDatePartitions(t *testing.T) {
	s := New()
	dates := []string{"2024-03-01", "2024-03-02", "2024-03-01", "2024-02-29", "2024-03-02", "2024-03-01"}
	for i, d := range dates {
		mustCreate(t, s, draft(d, core.Snack, "item", 100+i))
	}

	groups := s.GroupByDate()
	require.Len(t, groups, 3)

	total := 0
	seen := map[int64]bool{}
	for _, g := range groups {
		require.NotEmpty(t, g.Records, "group %s is empty", g.Key)
		total += len(g.Records)
		for _, r := range g.Records {
			assert.False(t, seen[r.ID], "record %d in two groups", r.ID)
			seen[r.ID] = true
			assert.True(t, r.Date.Equal(g.Date))
			assert.Equal(t, g.Key, r.Date.LocaleString())
		}
	}
	assert.Equal(t, len(dates), total)

	// first-seen order over the most-recent-first store
	assert.Equal(t, "3/1/2024", groups[0].Key)
	assert.Equal(t, "3/2/2024", groups[1].Key)
	assert.Equal(t, "2/29/2024", groups[2].Key)
	assert.Len(t, groups[0].Records, 3)
}

func TestGroupByDateIndependentOfStorageOrder(t *testing.T) {
	recs := []core.Record{
		{ID: 1, Date: core.NewDate(2024, 3, 1)},
		{ID: 2, Date: core.NewDate(2024, 3, 2)},
		{ID: 3, Date: core.NewDate(2024, 3, 1)},
	}
	reversed := []core.Record{recs[2], recs[1], recs[0]}

	membership := func(groups []Group) map[int64]string {
		out := map[int64]string{}
		for _, g := range groups {
			for _, r := range g.Records {
				out[r.ID] = g.Key
			}
		}
		return out
	}
	a := membership(New(WithSeed(recs...)).GroupByDate())
	b := membership(New(WithSeed(reversed...)).GroupByDate())
	assert.Equal(t, a, b)
}

func TestGroupByDateEmptyStore(t *testing.T) {
	assert.Empty(t, New().GroupByDate())
}

func TestSumCaloriesIncludesInvalid(t *testing.T) {
	s := New()
	mustCreate(t, s, draft("2024-03-01", core.Lunch, "Salad", 350))
	bad, err := s.Create(draft("2024-03-01", core.Snack, "Typo", -50))
	require.NoError(t, err)
	assert.True(t, bad.IsInvalid())
	mustCreate(t, s, draft("2024-03-02", core.Dinner, "Pasta", 700))

	assert.Equal(t, 300, s.SumCalories(OnDate(core.NewDate(2024, 3, 1))))
	assert.Equal(t, 1000, s.SumCalories(Any))
	assert.Equal(t, 0, s.SumCalories(OnDate(core.NewDate(2025, 1, 1))))
}

func TestPredicates(t *testing.T) {
	s := New()
	mustCreate(t, s, draft("2024-03-01", core.Lunch, "a", 100))
	mustCreate(t, s, draft("2024-03-04", core.Lunch, "b", 200))
	mustCreate(t, s, draft("2024-03-07", core.Dinner, "c", 400))
	mustCreate(t, s, draft("2024-03-08", core.Lunch, "d", 800))

	week := Between(core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 7))
	assert.Equal(t, 700, s.SumCalories(week))
	assert.Equal(t, 3, s.Count(week))
	assert.Equal(t, 300, s.SumCalories(And(week, OfMeal(core.Lunch))))
	assert.Len(t, s.Select(OfMeal(core.Lunch)), 3)
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	mustCreate(t, s, draft("2024-03-01", core.Lunch, "Salad", 350))
	all := s.All()
	all[0].Content = "mutated"
	assert.Equal(t, "Salad", s.All()[0].Content)
}

func TestConcurrentCreatesKeepIDsUnique(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	const n = 50
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Create(draft("2024-03-01", core.Snack, "x", 1))
			if err == nil {
				ids <- r.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, s.SumCalories(Any))
}
