// Package clipboard copies the payment identifier to the system
// clipboard. Failure is expected on some platforms (headless sessions, no
// xclip/xsel) and degrades to a hint telling the user to copy by hand.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/roach88/jersey/internal/notify"
)

// MsgCopied is shown after a successful copy.
const MsgCopied = "UPI id copied"

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard: unsupported on this system")

// Copier writes text to a clipboard.
type Copier interface {
	WriteAll(text string) error
}

// System is the Copier backed by the OS clipboard.
type System struct{}

// WriteAll implements Copier.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// ManualHint is the message shown when copying fails.
func ManualHint(id string) string {
	return fmt.Sprintf("Copy failed, copy manually: %s", id)
}

// CopyIdentifier copies id and notifies the outcome. It reports whether
// the copy succeeded; failure is never returned as an error.
func CopyIdentifier(c Copier, id string, n notify.Notifier) bool {
	if err := c.WriteAll(id); err != nil {
		n.Notify(ManualHint(id))
		return false
	}
	n.Notify(MsgCopied)
	return true
}
