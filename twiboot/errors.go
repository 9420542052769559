package twiboot

import "fmt"

// DecodeError indicates a bootloader reply that could not be interpreted,
// such as a short chip info reply or a reported page size of zero. Nothing
// useful can be done with the device until it answers sanely, so these are
// fatal before any paging or flashing begins.
type DecodeError struct {
	Reply  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bad %s reply: %s", e.Reply, e.Reason)
}

// VerifyError indicates that one flash page never read back correctly,
// even after every entry in the retry schedule was attempted. Pages before
// the failing one have already been written; pages after it were never
// attempted.
type VerifyError struct {
	Page     int
	Attempts int
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("page %d failed to verify after %d attempts", e.Page, e.Attempts)
}
