package math

// DivRoundUp returns ceil(a/b) for non-negative operands.
func DivRoundUp[T Integer](a, b T) T {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}
