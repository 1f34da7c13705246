// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package arith implements the overflow-checked 64-bit integer arithmetic
// spec §4.C requires for constant folding in the parser and for runtime
// arithmetic in the evaluator. Both callers share this package so the two
// places in the pipeline that "do math" agree on exactly what overflows.
package arith

import "math"

// AddInt returns a+b, reporting whether the sum overflows int64.
func AddInt(a, b int64) (sum int64, overflow bool) {
	sum = a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, true
	}
	return sum, false
}

// SubInt returns a-b, reporting whether the difference overflows int64.
func SubInt(a, b int64) (diff int64, overflow bool) {
	diff = a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, true
	}
	return diff, false
}

// MulInt returns a*b, reporting whether the product overflows int64.
func MulInt(a, b int64) (product int64, overflow bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	product = a * b
	if product/b != a {
		return 0, true
	}
	// the one case a/b recovery cannot catch: MinInt64 * -1.
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, true
	}
	return product, false
}

// DivInt returns a/b. The caller must check b != 0 first (spec reports
// that case as DivideByZero, distinct from overflow).
func DivInt(a, b int64) (quotient int64, overflow bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, true
	}
	return a / b, false
}

// ModInt returns a%b. The caller must check b != 0 first (ModuloByZero).
func ModInt(a, b int64) (remainder int64, overflow bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, false // a % -1 is always 0, no overflow possible
	}
	return a % b, false
}

// NegateInt returns -a, reporting overflow for the one value that cannot
// be negated in two's complement: math.MinInt64.
func NegateInt(a int64) (neg int64, overflow bool) {
	if a == math.MinInt64 {
		return 0, true
	}
	return -a, false
}
