package engine

import (
	"github.com/shopspring/decimal"

	"github.com/amgaina/CoreCutter/internal/model"
)

// maxScaleDigits keeps 10^digits inside int64.
const maxScaleDigits = 18

// Scaled is a request converted to exact integers. The effective domain folds
// one kerf into every piece and into the capacity, which turns
// sum(c*w) + (n-1)*k <= L into sum(c*(w+k)) <= L+k. The raw domain keeps the
// original magnitudes for waste accounting.
type Scaled struct {
	Scale  int64 // 10^Digits
	Digits int32

	// Effective domain, used for pattern feasibility.
	Capacity int64
	Widths   []int64

	// Raw domain, used by the assembler.
	Length    int64
	RawWidths []int64
	Kerf      int64

	Demand []int64

	Config  model.Configuration
	Demands []model.DemandLine
}

// Empty reports whether there is nothing to cut.
func (s Scaled) Empty() bool {
	for _, q := range s.Demand {
		if q > 0 {
			return false
		}
	}
	return true
}

// Normalize validates a request and converts it to the exact integer domain.
// A request with zero total quantity is returned unscaled; callers check Empty
// before going further.
func Normalize(cfg model.Configuration, demands []model.DemandLine) (Scaled, error) {
	if cfg.MasterLength.Sign() <= 0 {
		return Scaled{}, invalidf(-1, "master length must be > 0, got %s", cfg.MasterLength)
	}
	if cfg.Kerf.Sign() < 0 {
		return Scaled{}, invalidf(-1, "kerf must be >= 0, got %s", cfg.Kerf)
	}

	s := Scaled{
		Config:  cfg,
		Demands: demands,
		Demand:  make([]int64, len(demands)),
	}
	for i, d := range demands {
		if d.Width.Sign() <= 0 {
			return Scaled{}, invalidf(i, "width must be > 0, got %s", d.Width)
		}
		if d.Quantity < 0 {
			return Scaled{}, invalidf(i, "quantity must be >= 0, got %d", d.Quantity)
		}
		s.Demand[i] = int64(d.Quantity)
	}
	if s.Empty() {
		return s, nil
	}

	capacity := cfg.MasterLength.Add(cfg.Kerf)
	effective := make([]decimal.Decimal, len(demands))
	for i, d := range demands {
		effective[i] = d.Width.Add(cfg.Kerf)
	}

	digits := fractionalDigits(capacity)
	if k := fractionalDigits(cfg.Kerf); k > digits {
		digits = k
	}
	for _, w := range effective {
		if k := fractionalDigits(w); k > digits {
			digits = k
		}
	}
	if digits > maxScaleDigits {
		return Scaled{}, invalidf(-1, "inputs carry %d decimal places, at most %d are supported", digits, maxScaleDigits)
	}
	s.Digits = digits
	s.Scale = decimal.New(1, digits).IntPart()

	var err error
	if s.Capacity, err = toScaled(capacity, digits, -1); err != nil {
		return Scaled{}, err
	}
	if s.Length, err = toScaled(cfg.MasterLength, digits, -1); err != nil {
		return Scaled{}, err
	}
	if s.Kerf, err = toScaled(cfg.Kerf, digits, -1); err != nil {
		return Scaled{}, err
	}

	s.Widths = make([]int64, len(demands))
	s.RawWidths = make([]int64, len(demands))
	for i, d := range demands {
		if s.Widths[i], err = toScaled(effective[i], digits, i); err != nil {
			return Scaled{}, err
		}
		if s.RawWidths[i], err = toScaled(d.Width, digits, i); err != nil {
			return Scaled{}, err
		}
		if s.RawWidths[i] > s.Length {
			return Scaled{}, newError(KindOversizedItem, i, nil,
				"width %s is larger than master length %s", d.Width, cfg.MasterLength)
		}
	}
	return s, nil
}

// ToReal converts a scaled integer magnitude back to the request's unit.
func (s Scaled) ToReal(v int64) decimal.Decimal {
	return decimal.New(v, -s.Digits)
}

// fractionalDigits returns the number of significant digits after the
// decimal point, ignoring trailing zeros.
func fractionalDigits(d decimal.Decimal) int32 {
	exp := d.Exponent()
	if exp >= 0 {
		return 0
	}
	k := -exp
	for k > 0 && d.Shift(k-1).IsInteger() {
		k--
	}
	return k
}

// toScaled multiplies d by 10^digits and returns it as an int64.
func toScaled(d decimal.Decimal, digits int32, index int) (int64, error) {
	v := d.Shift(digits).Round(0).BigInt()
	if !v.IsInt64() {
		return 0, invalidf(index, "value %s is too large to scale", d)
	}
	return v.Int64(), nil
}
