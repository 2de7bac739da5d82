// Package job reads batch card decks and writes the printer output of the
// jobs they contain.
package job

// A Job is one $AMJ ... $END section of a card deck.
type Job struct {
	ID  int
	TTL int
	TLL int

	// Program holds the program cards, one page per card.
	Program []string

	// Data holds the cards that follow $DTA.
	Data []string
}

// Input returns a reader that serves the data cards of the job from the
// first one.
func (j *Job) Input() *CardReader {
	return &CardReader{cards: j.Data}
}

// A CardReader serves cards in order.
type CardReader struct {
	cards []string
	next  int
}

// ReadCard returns the next card, or false if no card is left.
func (r *CardReader) ReadCard() (string, bool) {
	if r.next >= len(r.cards) {
		return "", false
	}

	card := r.cards[r.next]
	r.next++

	return card, true
}

// Remaining returns the number of cards not read yet.
func (r *CardReader) Remaining() int {
	return len(r.cards) - r.next
}
