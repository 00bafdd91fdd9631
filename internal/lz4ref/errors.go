package lz4ref

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrDstTooSmall Error = "lz4: destination buffer too short"
)
