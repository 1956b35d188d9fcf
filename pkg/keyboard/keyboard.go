//go:build linux || darwin || freebsd || netbsd || openbsd

package keyboard

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// pollTimeout bounds how long a read waits before checking for cancellation, in ms
const pollTimeout = 100

func New(in *os.File) *TerminalReader {
	return &TerminalReader{
		in:  in,
		log: zap.S().With("input", in.Name()),
	}
}

// TerminalReader switches the terminal to raw mode for the duration of each read only, so that
// status lines written between reads are rendered normally.
type TerminalReader struct {
	in  *os.File
	log *zap.SugaredLogger
}

func (r *TerminalReader) ReadKey(ctx context.Context) (key rune, err error) {
	fd := int(r.in.Fd())

	if term.IsTerminal(fd) {
		old, errRaw := term.MakeRaw(fd)
		if errRaw != nil {
			return 0, fmt.Errorf("unable to set terminal in raw mode: %w", errRaw)
		}
		defer func() {
			if errRestore := term.Restore(fd, old); errRestore != nil && err == nil {
				err = fmt.Errorf("unable to restore terminal: %w", errRestore)
			}
		}()
	} else {
		r.log.Debug("input is not a terminal, read without raw mode")
	}

	return read(ctx, fd)
}

// read decodes one utf-8 encoded key. Invalid sequences are returned as utf8.RuneError.
func read(ctx context.Context, fd int) (rune, error) {
	b, err := readByte(ctx, fd)
	if err != nil {
		return 0, err
	}
	seqLen := utf8SeqLen(b)
	if seqLen == 1 {
		return rune(b), nil
	}
	if seqLen == 0 {
		return utf8.RuneError, nil
	}

	seq := make([]byte, 1, seqLen)
	seq[0] = b
	for len(seq) < seqLen {
		b, err = readByte(ctx, fd)
		if err != nil {
			return 0, err
		}
		seq = append(seq, b)
	}
	key, _ := utf8.DecodeRune(seq)
	return key, nil
}

func utf8SeqLen(b byte) int {
	switch {
	case b < utf8.RuneSelf:
		return 1
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	}
	return 0
}

func readByte(ctx context.Context, fd int) (byte, error) {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		fds := []unix.PollFd{
			{Fd: int32(fd), Events: unix.POLLIN},
		}
		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, fmt.Errorf("unable to poll input: %w", err)
		}
		if n == 0 {
			continue
		}

		rn, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return 0, fmt.Errorf("unable to read key: %w", err)
		}
		if rn == 0 {
			return 0, io.EOF
		}
		return buf[0], nil
	}
}
