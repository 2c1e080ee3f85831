package helpers

import (
	"math"
	"strconv"

	"github.com/conneroisu/pagelume/internal/template"
)

func number(v any) float64 {
	if v == nil {
		return math.NaN()
	}
	f, ok := template.ToNumber(v)
	if !ok {
		return math.NaN()
	}
	return f
}

// add concatenates when either operand is a string and sums otherwise.
func add(args []any, _ *template.Options) (any, error) {
	a, b := arg(args, 0), arg(args, 1)
	_, aString := a.(string)
	_, bString := b.(string)
	if aString || bString {
		return template.ToString(a) + template.ToString(b), nil
	}
	return number(a) + number(b), nil
}

func arithmetic(op func(a, b float64) float64) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		return op(number(arg(args, 0)), number(arg(args, 1))), nil
	}
}

// divide yields 0 for a zero divisor.
func divide(args []any, _ *template.Options) (any, error) {
	b := number(arg(args, 1))
	if b == 0 {
		return 0.0, nil
	}
	return number(arg(args, 0)) / b, nil
}

func mod(args []any, _ *template.Options) (any, error) {
	return math.Mod(number(arg(args, 0)), number(arg(args, 1))), nil
}

// round rounds half up to the given number of decimals. Shifting through
// the decimal exponent keeps 1.005 from rounding down.
func round(args []any, _ *template.Options) (any, error) {
	num := number(arg(args, 0))
	decimals := 0
	if d := arg(args, 1); d != nil {
		decimals = int(number(d))
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return num, nil
	}

	shifted, err := strconv.ParseFloat(strconv.FormatFloat(num, 'g', -1, 64)+"e"+strconv.Itoa(decimals), 64)
	if err != nil {
		return math.NaN(), nil
	}
	rounded := math.Floor(shifted + 0.5)
	out, err := strconv.ParseFloat(strconv.FormatFloat(rounded, 'g', -1, 64)+"e"+strconv.Itoa(-decimals), 64)
	if err != nil {
		return math.NaN(), nil
	}
	return out, nil
}

func mathFloor(f float64) float64 { return math.Floor(f) }

func mathCeil(f float64) float64 { return math.Ceil(f) }

func unary(op func(float64) float64) template.HelperFunc {
	return func(args []any, _ *template.Options) (any, error) {
		return op(number(arg(args, 0))), nil
	}
}
