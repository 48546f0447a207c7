package poems

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLedger struct {
	mu      sync.Mutex
	seen    map[string]bool
	total   int64
	monthly map[time.Time]int64
}

func newMemLedger() *memLedger {
	return &memLedger{seen: make(map[string]bool), monthly: make(map[time.Time]int64)}
}

func (m *memLedger) Insert(poemID int64, hash string, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d|%s|%s", poemID, hash, day.Format("2006-01-02"))
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memLedger) Increment(_ int64, month time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.monthly[month]++
	return nil
}

func (m *memLedger) Total(_ int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

func TestRegisterViewCountsOncePerVisitorAndDay(t *testing.T) {
	ledger := newMemLedger()
	now := time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)

	first, err := registerView(ledger, 7, "visitor-a", now)
	require.NoError(t, err)
	assert.True(t, first.Counted)
	assert.Equal(t, int64(1), first.Views)

	repeat, err := registerView(ledger, 7, "visitor-a", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, repeat.Counted, "same visitor and day must not count twice")
	assert.Equal(t, int64(1), repeat.Views)

	other, err := registerView(ledger, 7, "visitor-b", now)
	require.NoError(t, err)
	assert.True(t, other.Counted)
	assert.Equal(t, int64(2), other.Views)

	assert.Equal(t, int64(2), ledger.monthly[monthStart(now)])
}

func TestRegisterViewNextDayCountsAgain(t *testing.T) {
	ledger := newMemLedger()
	now := time.Date(2025, time.March, 10, 23, 0, 0, 0, time.UTC)

	first, err := registerView(ledger, 7, "visitor-a", now)
	require.NoError(t, err)
	require.True(t, first.Counted)

	nextDay, err := registerView(ledger, 7, "visitor-a", now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.True(t, nextDay.Counted, "a new day opens a new window")
	assert.Equal(t, int64(2), nextDay.Views)
}

func TestRegisterViewUsesLocalCalendarDate(t *testing.T) {
	ledger := newMemLedger()
	zone := time.FixedZone("UTC+5", 5*60*60)

	// Both instants land on March 9 in UTC; only the local date separates them.
	late := time.Date(2025, time.March, 9, 23, 30, 0, 0, zone)
	early := time.Date(2025, time.March, 10, 0, 30, 0, 0, zone)

	first, err := registerView(ledger, 7, "visitor-a", late)
	require.NoError(t, err)
	require.True(t, first.Counted)

	second, err := registerView(ledger, 7, "visitor-a", early)
	require.NoError(t, err)
	assert.True(t, second.Counted, "crossing local midnight opens a new window")
	assert.Equal(t, int64(2), second.Views)
}

func TestRegisterViewConcurrentRequestsCountOnce(t *testing.T) {
	ledger := newMemLedger()
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	const workers = 32
	counted := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := registerView(ledger, 7, "visitor-a", now)
			assert.NoError(t, err)
			counted <- result.Counted
		}()
	}
	wg.Wait()
	close(counted)

	wins := 0
	for c := range counted {
		if c {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one request wins the daily row")

	total, err := ledger.Total(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPreviewKeepsFirstThreeNonEmptyLines(t *testing.T) {
	text := "line one\n\n  \nline two\nline three\nline four"
	assert.Equal(t, "line one\nline two\nline three", preview(text))

	assert.Equal(t, "only line", preview("only line"))
	assert.Equal(t, "", preview("\n\n\n"))
}

func TestDateHelpers(t *testing.T) {
	at := time.Date(2025, time.March, 17, 9, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC), dayStart(at))
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), monthStart(at))
	assert.Equal(t, "03.2025", monthLabel(at))
}

func TestPoemSlug(t *testing.T) {
	slug, urlSlug := poemSlug(42, "Ode to Spring")
	assert.Equal(t, "ode-to-spring", slug)
	assert.Equal(t, "42-ode-to-spring", urlSlug)

	slug, urlSlug = poemSlug(7, "Шеъри баҳор")
	assert.Equal(t, "poem", slug, "non-latin titles fall back")
	assert.Equal(t, "7-poem", urlSlug)
}
