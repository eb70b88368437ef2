package main

import (
	"bufio"
	"context"
	"io"
)

// readLines streams lines of r until EOF or until ctx is done. The channel
// is closed either way.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
