package job

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Control card prefixes.
const (
	CardJobStart  = "$AMJ"
	CardDataStart = "$DTA"
	CardJobEnd    = "$END"
)

// ErrMalformedCard is returned when the deck cannot be parsed.
var ErrMalformedCard = errors.New("malformed card")

type section int

const (
	sectionNone section = iota
	sectionProgram
	sectionData
)

// A Loader splits a card deck into jobs.
type Loader struct {
	scanner *bufio.Scanner
	lineNo  int

	pending    string
	hasPending bool
}

// NewLoader creates a loader that reads cards from r, one card per line.
func NewLoader(r io.Reader) *Loader {
	return &Loader{scanner: bufio.NewScanner(r)}
}

func (l *Loader) nextCard() (string, bool) {
	if l.hasPending {
		l.hasPending = false
		return l.pending, true
	}

	if !l.scanner.Scan() {
		return "", false
	}

	l.lineNo++

	return strings.TrimRight(l.scanner.Text(), "\r"), true
}

func (l *Loader) pushBack(card string) {
	l.pending = card
	l.hasPending = true
}

// Next returns the next job of the deck. It returns io.EOF once the deck has
// no job left. A job that is cut short by the next $AMJ card or by the end of
// the deck is returned with the cards read so far.
func (l *Loader) Next() (*Job, error) {
	var (
		j       *Job
		current = sectionNone
	)

	for {
		card, ok := l.nextCard()
		if !ok {
			break
		}

		switch {
		case strings.HasPrefix(card, CardJobStart):
			if j != nil {
				l.pushBack(card)
				return l.finish(j, current)
			}

			header, err := l.parseHeader(card)
			if err != nil {
				return nil, err
			}

			j = header
			current = sectionProgram
		case j == nil:
			if strings.TrimSpace(card) == "" {
				continue
			}

			return nil, fmt.Errorf("%w: line %d: card outside of a job: %q",
				ErrMalformedCard, l.lineNo, card)
		case strings.HasPrefix(card, CardDataStart):
			current = sectionData
		case strings.HasPrefix(card, CardJobEnd):
			return l.finish(j, current)
		case current == sectionProgram:
			j.Program = append(j.Program, card)
		default:
			j.Data = append(j.Data, card)
		}
	}

	if err := l.scanner.Err(); err != nil {
		return nil, err
	}

	if j == nil {
		return nil, io.EOF
	}

	return l.finish(j, current)
}

func (l *Loader) finish(j *Job, s section) (*Job, error) {
	if s != sectionData {
		return nil, fmt.Errorf("%w: job %d has no %s card",
			ErrMalformedCard, j.ID, CardDataStart)
	}

	return j, nil
}

func (l *Loader) parseHeader(card string) (*Job, error) {
	const fieldWidth = 4

	if len(card) < len(CardJobStart)+3*fieldWidth {
		return nil, fmt.Errorf("%w: line %d: short job card %q",
			ErrMalformedCard, l.lineNo, card)
	}

	fields := make([]int, 3)
	for i := range fields {
		start := len(CardJobStart) + i*fieldWidth
		raw := strings.TrimSpace(card[start : start+fieldWidth])

		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: line %d: bad field %q in %q",
				ErrMalformedCard, l.lineNo, raw, card)
		}

		fields[i] = v
	}

	return &Job{ID: fields[0], TTL: fields[1], TLL: fields[2]}, nil
}
