package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/hh-career/internal/headhunter"
	"github.com/spigell/hh-career/internal/profile"
)

type fakeBoard struct {
	mu       sync.Mutex
	pages    map[string][]*headhunter.Vacancy
	failing  map[string]bool
	skills   map[string][]string
	searched []*headhunter.SearchParams
}

func (b *fakeBoard) Search(_ context.Context, params *headhunter.SearchParams) ([]*headhunter.Vacancy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searched = append(b.searched, params)
	if b.failing[params.Text] {
		return nil, fmt.Errorf("%w: 503", headhunter.ErrBadStatus)
	}
	return b.pages[params.Text], nil
}

func (b *fakeBoard) GetSkills(_ context.Context, detailURL string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	skills, ok := b.skills[detailURL]
	if !ok {
		return nil, errors.New("timeout")
	}
	return skills, nil
}

type fixedQueries []string

func (q fixedQueries) Generate(context.Context, *profile.Student, int) []string { return q }

func items(prefix string, n int) []*headhunter.Vacancy {
	out := make([]*headhunter.Vacancy, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		out = append(out, &headhunter.Vacancy{ID: id, Name: "Vacancy " + id, URL: "detail/" + id})
	}
	return out
}

func searchedTexts(b *fakeBoard) []string {
	texts := make([]string, 0, len(b.searched))
	for _, p := range b.searched {
		texts = append(texts, p.Text)
	}
	return texts
}

func TestFetchAnonymousIssuesSingleUnfilteredQuery(t *testing.T) {
	board := &fakeBoard{pages: map[string][]*headhunter.Vacancy{"": items("a", 3)}, skills: map[string][]string{}}
	f := New(board, fixedQueries{"unused"}, Config{Schedules: []string{"remote"}, Period: 7}, zap.NewNop())

	cards := f.Fetch(context.Background(), nil, 3)
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	if len(board.searched) != 1 {
		t.Fatalf("expected a single search, got %d", len(board.searched))
	}

	p := board.searched[0]
	if p.Text != "" || p.Experience != "" || len(p.Schedules) != 0 || p.Period != 0 {
		t.Fatalf("expected unfiltered query, got %+v", p)
	}
	if p.Area != headhunter.DefaultArea || p.PerPage != headhunter.DefaultPerPage || p.OrderBy != headhunter.DefaultOrderBy {
		t.Fatalf("unexpected params %+v", p)
	}
	for _, card := range cards {
		if card.Skills == nil || len(card.Skills) != 0 {
			t.Fatalf("expected empty skills after detail failure, got %#v", card.Skills)
		}
	}
}

func TestFetchFilteredQueryCarriesSearchFilters(t *testing.T) {
	board := &fakeBoard{pages: map[string][]*headhunter.Vacancy{"go": items("a", 1)}, skills: map[string][]string{}}
	f := New(board, fixedQueries{"go"}, Config{Schedules: []string{"remote", "flexible"}, Period: 7}, zap.NewNop())

	f.Fetch(context.Background(), &profile.Student{}, 1)

	if len(board.searched) != 1 {
		t.Fatalf("expected a single search, got %d", len(board.searched))
	}
	p := board.searched[0]
	if p.Experience != headhunter.ExperienceNone || p.Period != 7 || strings.Join(p.Schedules, ",") != "remote,flexible" {
		t.Fatalf("unexpected filtered params %+v", p)
	}
}

func TestFetchStopsOnceEnoughVacancies(t *testing.T) {
	board := &fakeBoard{pages: map[string][]*headhunter.Vacancy{
		"first":  items("a", 12),
		"second": items("b", 5),
	}}
	f := New(board, fixedQueries{"first", "second"}, Config{}, zap.NewNop())

	cards := f.Fetch(context.Background(), &profile.Student{}, 2)
	if len(cards) != 12 {
		t.Fatalf("expected 12 cards, got %d", len(cards))
	}
	if got := strings.Join(searchedTexts(board), ","); got != "first" {
		t.Fatalf("expected only the first query, got %s", got)
	}
	if board.searched[0].Experience != headhunter.ExperienceNone {
		t.Fatalf("expected experience filter, got %+v", board.searched[0])
	}
}

func TestFetchContinuesAndDedupes(t *testing.T) {
	board := &fakeBoard{pages: map[string][]*headhunter.Vacancy{
		"first":  items("a", 4),
		"second": append(items("a", 2), items("b", 3)...),
		"third":  items("c", 1),
	}}
	f := New(board, fixedQueries{"first", "second", "third"}, Config{}, zap.NewNop())

	cards := f.Fetch(context.Background(), &profile.Student{}, 3)

	var got []string
	for _, c := range cards {
		got = append(got, c.ID)
	}
	if strings.Join(got, ",") != "a1,a2,a3,a4,b1,b2,b3,c1" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestFetchSkipsFailedQuery(t *testing.T) {
	board := &fakeBoard{
		pages:   map[string][]*headhunter.Vacancy{"second": items("b", 2)},
		failing: map[string]bool{"first": true},
		skills:  map[string][]string{"detail/b1": {"Go", "SQL"}},
	}
	f := New(board, fixedQueries{"first", "second"}, Config{}, zap.NewNop())

	cards := f.Fetch(context.Background(), &profile.Student{}, 2)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if strings.Join(cards[0].Skills, ",") != "Go,SQL" {
		t.Fatalf("unexpected skills %v", cards[0].Skills)
	}
	if len(cards[1].Skills) != 0 {
		t.Fatalf("expected degraded skills, got %v", cards[1].Skills)
	}
}

func TestFetchAllQueriesFail(t *testing.T) {
	board := &fakeBoard{failing: map[string]bool{"first": true, "second": true}}
	f := New(board, fixedQueries{"first", "second"}, Config{}, zap.NewNop())

	cards := f.Fetch(context.Background(), &profile.Student{}, 2)
	if len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
	if len(board.searched) != 2 {
		t.Fatalf("expected both queries to be tried, got %d", len(board.searched))
	}
}

func TestFetchKeepsItemsWithoutDetailURL(t *testing.T) {
	page := items("a", 2)
	page[1].URL = ""
	page = append(page, &headhunter.Vacancy{Name: "no id"})
	board := &fakeBoard{pages: map[string][]*headhunter.Vacancy{"": page}}
	f := New(board, nil, Config{}, zap.NewNop())

	cards := f.Fetch(context.Background(), nil, 1)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	board := &fakeBoard{pages: map[string][]*headhunter.Vacancy{"": items("a", 2)}}
	f := New(board, nil, Config{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if cards := f.Fetch(ctx, nil, 1); len(cards) != 0 {
		t.Fatalf("expected no cards, got %d", len(cards))
	}
	if len(board.searched) != 0 {
		t.Fatalf("expected no searches, got %d", len(board.searched))
	}
}
