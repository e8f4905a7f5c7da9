// Package checkpoint decorates errors with the source location they passed through.
// Every checkpoint keeps its own error and the previous one, so errors.Is and errors.As
// match both, and the chain of locations reads similar to a stacktrace.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps err by a checkpoint at the location of the caller.
// It returns nil if err is nil.
//
// io.EOF and io.ErrUnexpectedEOF are returned unchanged because callers compare them with ==.
// https://github.com/golang/go/issues/39155
func From(err error) error {
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}

	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint on top of prev and describes it by err.
// It returns nil if prev is nil, so it can wrap the result of any call directly:
//  var ErrReadFile = errors.New("could not read file")
//
//  func read() error {
//  	err := somethingThatFails()
//  	return checkpoint.Wrap(err, ErrReadFile)
//  }
// errors.Is then matches ErrReadFile and also the error of somethingThatFails.
// A nil err still creates the checkpoint.
func Wrap(prev, err error) error {
	if prev == nil || prev == io.EOF {
		return prev
	}

	return newCheckpoint(err, prev)
}

// Trace lists the locations of all checkpoints in the chain of err, outermost first.
func Trace(err error) []string {
	var result []string
	for err != nil {
		var cp *checkpoint
		if !errors.As(err, &cp) {
			break
		}
		result = append(result, cp.location())
		err = cp.prev
	}
	return result
}

type checkpoint struct {
	err  error
	prev error

	callerOk bool
	file     string
	line     int
}

func newCheckpoint(err, prev error) *checkpoint {
	// Skip newCheckpoint and From or Wrap.
	_, file, line, ok := runtime.Caller(2)
	return &checkpoint{
		err:      err,
		prev:     prev,
		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

func (e *checkpoint) location() string {
	if !e.callerOk {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", e.file, e.line)
}

func (e *checkpoint) Error() string {
	var b strings.Builder
	b.WriteString("File: ")
	b.WriteString(e.location())
	if e.err != nil {
		b.WriteString("\n\t")
		b.WriteString(strings.ReplaceAll(e.err.Error(), "\n", "\n\t"))
	}

	if e.prev == nil {
		return b.String()
	}

	b.WriteString("\n")
	if _, ok := e.prev.(*checkpoint); ok {
		b.WriteString(e.prev.Error())
	} else {
		b.WriteString("File: unknown\n\t")
		b.WriteString(strings.ReplaceAll(e.prev.Error(), "\n", "\n\t"))
	}
	return b.String()
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return e.err != nil && errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	return e.err != nil && errors.As(e.err, target)
}
