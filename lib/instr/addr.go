package instr

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a parsed GPIB resource.
type Address struct {
	Board     int
	Primary   int
	Secondary int // 0 if absent
}

func (a Address) String() string {
	if a.Secondary != 0 {
		return fmt.Sprintf("GPIB%d::%d::%d::INSTR", a.Board, a.Primary, a.Secondary)
	}
	return fmt.Sprintf("GPIB%d::%d::INSTR", a.Board, a.Primary)
}

// ParseAddress accepts VISA-style resources such as "GPIB1::9::INSTR" or
// "GPIB0::4::96::INSTR", and bare primary addresses such as "9".
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return checkAddress(Address{Primary: n}, s)
	}

	parts := strings.Split(strings.ToUpper(s), "::")
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "GPIB") {
		return Address{}, fmt.Errorf("unsupported resource %q", s)
	}
	if parts[len(parts)-1] == "INSTR" {
		parts = parts[:len(parts)-1]
	}
	var a Address
	if b := strings.TrimPrefix(parts[0], "GPIB"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil {
			return Address{}, fmt.Errorf("bad board in %q: %w", s, err)
		}
		a.Board = n
	}
	switch len(parts) {
	case 3:
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return Address{}, fmt.Errorf("bad secondary address in %q: %w", s, err)
		}
		a.Secondary = n
		fallthrough
	case 2:
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return Address{}, fmt.Errorf("bad primary address in %q: %w", s, err)
		}
		a.Primary = n
	default:
		return Address{}, fmt.Errorf("unsupported resource %q", s)
	}
	return checkAddress(a, s)
}

func checkAddress(a Address, s string) (Address, error) {
	if a.Primary < 0 || a.Primary > 30 {
		return Address{}, fmt.Errorf("primary address %d in %q out of range 0-30", a.Primary, s)
	}
	if a.Secondary != 0 && (a.Secondary < 96 || a.Secondary > 126) {
		return Address{}, fmt.Errorf("secondary address %d in %q out of range 96-126", a.Secondary, s)
	}
	return a, nil
}
