package settings

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompt asks for every known setting on out, reading answers line by line
// from in. An empty answer keeps the current value.
func (s *Store) Prompt(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "Please provide the following settings:")

	for _, e := range defaults {
		fmt.Fprintf(out, "%s (current: %s): ", e.prompt, s.Get(e.key, ""))
		answer, err := readLine(reader)
		if err != nil {
			return err
		}
		if answer == "" {
			continue
		}
		if err := s.Set(ctx, e.key, answer); err != nil {
			return err
		}
	}
	return nil
}

// ReadLine reads a single trimmed line. EOF on an empty line yields "".
func ReadLine(in *bufio.Reader) (string, error) {
	return readLine(in)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
