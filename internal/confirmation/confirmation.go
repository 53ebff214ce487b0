// Package confirmation asks the operator before snapshots are deleted.
package confirmation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"db-snapshot/internal/display"
)

// maxAttempts bounds how often an unrecognized answer is asked again
const maxAttempts = 3

// ConfirmationService handles operator confirmation for destructive steps
type ConfirmationService interface {
	ConfirmDeletion(ctx context.Context, names []string, autoApprove bool) (bool, error)
}

// confirmationService implements ConfirmationService over a line based reader
type confirmationService struct {
	reader *bufio.Reader
	out    io.Writer
	colors *display.ColorSystem
}

// NewConfirmationService reads answers from in and writes prompts to out
func NewConfirmationService(in io.Reader, out io.Writer, colors *display.ColorSystem) ConfirmationService {
	if colors == nil {
		colors = display.NewColorSystem(display.PlainTextTheme(), false)
	}
	return &confirmationService{
		reader: bufio.NewReader(in),
		out:    out,
		colors: colors,
	}
}

// ConfirmDeletion lists names and asks whether they may be deleted. An empty
// list needs no confirmation. Canceling ctx aborts the prompt with ctx.Err().
func (cs *confirmationService) ConfirmDeletion(ctx context.Context, names []string, autoApprove bool) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}

	theme := cs.colors.Theme()
	fmt.Fprintln(cs.out, cs.colors.Colorize(fmt.Sprintf("The following %d snapshot(s) will be deleted:", len(names)), theme.Warning))
	for _, name := range names {
		fmt.Fprintf(cs.out, "  - %s\n", name)
	}

	if autoApprove {
		fmt.Fprintln(cs.out, cs.colors.Colorize("✓ Auto-approving deletion", theme.Success))
		return true, nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		input, err := cs.prompt(ctx)
		if err != nil {
			return false, err
		}

		approved, ok := parseConfirmationInput(input)
		if ok {
			return approved, nil
		}
		fmt.Fprintf(cs.out, "Invalid input '%s'. Please enter 'y' for yes or 'n' for no.\n", input)
	}
	return false, nil
}

// prompt reads one answer, giving up when ctx is canceled
func (cs *confirmationService) prompt(ctx context.Context) (string, error) {
	fmt.Fprint(cs.out, cs.colors.Colorize("Delete these snapshots? [y/N]: ", cs.colors.Theme().Primary))

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)

	go func() {
		line, err := cs.reader.ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cs.out)
		fmt.Fprintln(cs.out, cs.colors.Colorize("⚠ Operation cancelled", cs.colors.Theme().Warning))
		return "", ctx.Err()
	case a := <-answers:
		// a final line without newline still counts
		if a.err != nil && !(errors.Is(a.err, io.EOF) && a.line != "") {
			if errors.Is(a.err, io.EOF) {
				return "", nil
			}
			return "", fmt.Errorf("failed to read input: %w", a.err)
		}
		return strings.TrimSpace(a.line), nil
	}
}

// parseConfirmationInput reports the answer and whether it was recognized.
// An empty answer means no.
func parseConfirmationInput(input string) (approved bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, true
	case "n", "no", "":
		return false, true
	default:
		return false, false
	}
}
