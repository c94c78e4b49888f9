package battle

import (
	"errors"
	"math/rand"
	"testing"
)

func TestArmy_RemoveFromStock(t *testing.T) {
	a, err := NewArmy(Stock{Knights: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.RemoveFromStock(Knights); err != nil {
		t.Fatalf("first removal: %v", err)
	}
	if err := a.RemoveFromStock(Knights); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("second removal err = %v, want ErrOutOfStock", err)
	}
	if a.Count(Knights) != 0 {
		t.Errorf("count = %d, want 0", a.Count(Knights))
	}
	if err := a.RemoveFromStock(Mages); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("removal of never-stocked unit err = %v, want ErrOutOfStock", err)
	}
}

func TestNewArmy_RejectsNegative(t *testing.T) {
	if _, err := NewArmy(Stock{Archers: -1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestArmy_RandomAvailableUnit(t *testing.T) {
	a, _ := NewArmy(Stock{Knights: 2, Mages: 1, Archers: 0})
	r := rand.New(rand.NewSource(7))
	seen := map[UnitType]bool{}
	for i := 0; i < 500; i++ {
		u, err := a.RandomAvailableUnit(r)
		if err != nil {
			t.Fatal(err)
		}
		if !a.HasStock(u) {
			t.Fatalf("returned out-of-stock unit %s", u)
		}
		seen[u] = true
	}
	if !seen[Knights] || !seen[Mages] || len(seen) != 2 {
		t.Errorf("reachable units = %v, want knights and mages", seen)
	}
}

func TestArmy_RandomAvailableUnit_Depleted(t *testing.T) {
	a, _ := NewArmy(Stock{})
	if _, err := a.RandomAvailableUnit(nil); !errors.Is(err, ErrArmyDepleted) {
		t.Errorf("err = %v, want ErrArmyDepleted", err)
	}
	if !a.Depleted() {
		t.Error("empty army should be depleted")
	}
}

func TestArmy_AvailableCounters(t *testing.T) {
	a, _ := NewArmy(Stock{Spearmen: 1, Shields: 0, Mages: 3})
	got := a.AvailableCounters(Knights)
	if len(got) != 1 || got[0] != Spearmen {
		t.Errorf("AvailableCounters(knights) = %v, want [spearmen]", got)
	}
	if got := a.AvailableCounters(Spearmen); len(got) != 1 || got[0] != Mages {
		t.Errorf("AvailableCounters(spearmen) = %v, want [mages]", got)
	}
	if got := a.AvailableCounters(Mages); len(got) != 0 {
		t.Errorf("AvailableCounters(mages) = %v, want empty", got)
	}
}

func TestArmy_CloneIndependent(t *testing.T) {
	a, _ := NewArmy(UniformStock(2))
	c := a.Clone()
	_ = a.RemoveFromStock(Knights)
	if c.Count(Knights) != 2 {
		t.Error("clone should not see removals from original")
	}
	if a.Total() != 9 || c.Total() != 10 {
		t.Errorf("totals = %d/%d, want 9/10", a.Total(), c.Total())
	}
}
