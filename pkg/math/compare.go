package math

// Integer covers the engine's counting types (Block, Byte) and the plain
// integers they are converted from.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64
}

func Min[T Integer](a, b T) T {
	if b < a {
		return b
	}
	return a
}

func Max[T Integer](a, b T) T {
	if b > a {
		return b
	}
	return a
}
