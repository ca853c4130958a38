package mathparse

// noCond is the conditional depth outside the true branch of a conditional.
const noCond = -1

// scanState is the part of the parser that moves as tokens are read. Copies
// of it are snapshots that the parser can rewind to.
type scanState struct {
	// pos is the index in src of the next rune to scan.
	pos int
	// tok is the current token.
	tok lexToken
	// comment is the line comment scanned just before tok.
	comment string
	// depth is the number of open brackets.
	depth int
	// cond is the depth at which the innermost pending conditional's ?
	// was read, or noCond after its : is read.
	cond int
}

// parser holds the state of one parse. It must not be shared between parses.
type parser struct {
	scanState
	src []rune
	// custom holds the constructors for custom node names. Read-only.
	custom map[string]NodeConstructor
	// nums is the numeric policy for constants. Read-only.
	nums NumberConfig
	// snaps is the stack of snapshots for lookahead.
	snaps []scanState
}

func newParser(src string, p parsectx) *parser {
	return &parser{
		scanState: scanState{cond: noCond},
		src:       []rune(src),
		custom:    p.custom,
		nums:      p.nums,
	}
}

// next reads the next token. Tokenizer failures become syntax errors.
func (p *parser) next() error {
	if err := p.scan(); err != nil {
		return &SyntaxError{Col: p.col(), Msg: err.Error(), Err: err}
	}
	return nil
}

// nextSkipNewline reads the next token that is not a newline. Operators use it
// so that an expression may continue on the following line.
func (p *parser) nextSkipNewline() error {
	for {
		if err := p.next(); err != nil {
			return err
		}
		if p.tok.text != "\n" {
			return nil
		}
	}
}

func (p *parser) open() {
	p.depth++
}

func (p *parser) close() {
	p.depth--
}

// push saves a snapshot of the scan state.
func (p *parser) push() {
	p.snaps = append(p.snaps, p.scanState)
}

// restore rewinds to the most recent snapshot and discards it.
func (p *parser) restore() {
	p.scanState = p.snaps[len(p.snaps)-1]
	p.drop()
}

// drop discards the most recent snapshot.
func (p *parser) drop() {
	p.snaps = p.snaps[:len(p.snaps)-1]
}

// col is the 1-based column of the start of the current token.
func (p *parser) col() int {
	return p.pos - runelen(p.tok.text) + 1
}

func (p *parser) syntaxError(msg string) error {
	return &SyntaxError{Col: p.col(), Msg: msg}
}

func (p *parser) structureError(msg string) error {
	return &StructureError{Col: p.col(), Msg: msg}
}
