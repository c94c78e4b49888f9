package battle

import (
	"fmt"
	"strings"
)

// UnitType is one of the five unit kinds a commander can field.
type UnitType int

const (
	Knights UnitType = iota
	Shields
	Spearmen
	Mages
	Archers
)

// NumUnitTypes is the size of the closed UnitType set.
const NumUnitTypes = 5

var unitNames = [NumUnitTypes]string{
	Knights:  "knights",
	Shields:  "shields",
	Spearmen: "spearmen",
	Mages:    "mages",
	Archers:  "archers",
}

// AllUnitTypes returns every unit type in declaration order.
func AllUnitTypes() []UnitType {
	return []UnitType{Knights, Shields, Spearmen, Mages, Archers}
}

// Valid reports whether u is one of the five unit types.
func (u UnitType) Valid() bool {
	return u >= 0 && u < NumUnitTypes
}

func (u UnitType) String() string {
	if !u.Valid() {
		return fmt.Sprintf("unit(%d)", int(u))
	}
	return unitNames[u]
}

// ParseUnitType converts a lowercase unit name back to a UnitType.
func ParseUnitType(s string) (UnitType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for i, name := range unitNames {
		if name == norm {
			return UnitType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unit type %q", s)
}

// MarshalText encodes the unit by name so JSON payloads stay readable.
func (u UnitType) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("invalid unit type %d", int(u))
	}
	return []byte(u.String()), nil
}

// UnmarshalText decodes a unit name.
func (u *UnitType) UnmarshalText(b []byte) error {
	v, err := ParseUnitType(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Side identifies one of the two battle participants.
type Side string

const (
	SideHuman Side = "human"
	SideAI    Side = "ai"
	SideNone  Side = ""
)

// Opponent returns the other side. SideNone has no opponent.
func (s Side) Opponent() Side {
	switch s {
	case SideHuman:
		return SideAI
	case SideAI:
		return SideHuman
	}
	return SideNone
}
