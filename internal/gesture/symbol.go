package gesture

import "strconv"

// Symbol is a hand cricket move, 1 to 6 runs. The zero value means no symbol.
type Symbol int

// None is the absence of a symbol.
const None Symbol = 0

// Valid reports whether s is a playable move.
func (s Symbol) Valid() bool {
	return s >= 1 && s <= 6
}

func (s Symbol) String() string {
	if !s.Valid() {
		return "none"
	}
	return strconv.Itoa(int(s))
}

// Classify maps a finger state to a symbol:
// thumb alone is 6, open hand is 5, four fingers without thumb is 4,
// and one to three raised fingers count themselves regardless of the thumb.
func Classify(fs FingerState) Symbol {
	n := fs.Count()
	switch {
	case n == 0 && fs[Thumb]:
		return 6
	case n == 4 && fs[Thumb]:
		return 5
	case n == 4:
		return 4
	case n >= 1:
		return Symbol(n)
	}
	return None
}
