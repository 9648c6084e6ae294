// Package msgs defines shared message types for the TUI.
package msgs

// SaveFailedMsg is sent when the background writer could not store a snapshot.
type SaveFailedMsg struct {
	Err error
}

// FlashExpiredMsg clears the flash message with the matching sequence number.
type FlashExpiredMsg struct {
	Seq int
}
