// Package keyboard reads single keystrokes from the controlling terminal.
package keyboard

import "context"

type Reader interface {
	// ReadKey blocks until one key is pressed or ctx is done
	ReadKey(ctx context.Context) (rune, error)
}
