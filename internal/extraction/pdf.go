package extraction

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ExtractPDF extracts the flattened text of a PDF, splits it on line
// boundaries, and returns trimmed lines longer than MinBlockLength.
func ExtractPDF(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Format: "pdf", Cause: err}
	}
	defer func() { _ = f.Close() }()

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, &ExtractionError{Path: path, Format: "pdf", Cause: err}
	}

	var text strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return nil, &ExtractionError{Path: path, Format: "pdf", Cause: err}
		}
		if r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &ExtractionError{Path: path, Format: "pdf", Cause: err}
		}
		text.WriteString(contentStreamText(data))
		text.WriteByte('\n')
	}

	return splitTextLines(text.String()), nil
}

// splitTextLines splits flattened text on newlines and keeps trimmed lines
// longer than MinBlockLength.
func splitTextLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > MinBlockLength {
			lines = append(lines, line)
		}
	}
	return lines
}

// wordGapKerning is the TJ adjustment, in thousandths of an em, treated as a space
const wordGapKerning = -200

// operandKind tags the values collected before a content stream operator
type operandKind int

const (
	operandOther operandKind = iota
	operandNumber
	operandString
	operandArray
	operandArrayStart
)

type operand struct {
	kind  operandKind
	num   float64
	str   string
	items []operand
}

// contentStreamText walks the operators of a page content stream wherever they
// appear on a line. Text-showing operators append their strings; line-moving
// operators start a new line.
func contentStreamText(data []byte) string {
	var (
		sb    strings.Builder
		stack []operand
	)

	lex := &contentLexer{data: data}
	for {
		tok, ok := lex.next()
		if !ok {
			break
		}

		switch tok.kind {
		case tokenOperand:
			stack = append(stack, tok.operand)
			continue
		case tokenArrayStart:
			stack = append(stack, operand{kind: operandArrayStart})
			continue
		case tokenArrayEnd:
			stack = closeArray(stack)
			continue
		}

		switch tok.keyword {
		case "Tj":
			writeString(&sb, last(stack))
		case "TJ":
			writeArray(&sb, last(stack))
		case "'", "\"":
			sb.WriteByte('\n')
			writeString(&sb, last(stack))
		case "Td", "TD":
			if movesVertically(stack) {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		case "T*", "ET":
			sb.WriteByte('\n')
		case "BI":
			lex.skipInlineImage()
		}
		stack = stack[:0]
	}

	return sb.String()
}

func last(stack []operand) operand {
	if len(stack) == 0 {
		return operand{}
	}
	return stack[len(stack)-1]
}

func closeArray(stack []operand) []operand {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].kind == operandArrayStart {
			items := append([]operand(nil), stack[i+1:]...)
			return append(stack[:i], operand{kind: operandArray, items: items})
		}
	}
	return stack
}

func writeString(sb *strings.Builder, op operand) {
	if op.kind == operandString {
		sb.WriteString(op.str)
	}
}

func writeArray(sb *strings.Builder, op operand) {
	if op.kind != operandArray {
		writeString(sb, op)
		return
	}
	for _, item := range op.items {
		switch item.kind {
		case operandString:
			sb.WriteString(item.str)
		case operandNumber:
			if item.num <= wordGapKerning {
				sb.WriteByte(' ')
			}
		}
	}
}

// movesVertically reports whether a "tx ty Td" operator has a non-zero ty
func movesVertically(stack []operand) bool {
	if len(stack) < 2 {
		return true
	}
	ty := stack[len(stack)-1]
	if ty.kind != operandNumber {
		return true
	}
	return ty.num != 0
}

type tokenKind int

const (
	tokenOperand tokenKind = iota
	tokenKeyword
	tokenArrayStart
	tokenArrayEnd
)

type token struct {
	kind    tokenKind
	keyword string
	operand operand
}

// contentLexer splits a content stream into operands and operator keywords
type contentLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *contentLexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isPDFSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			return token{kind: tokenOperand, operand: operand{kind: operandString, str: l.literalString()}}, true
		case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
			l.pos += 2
		case c == '<':
			return token{kind: tokenOperand, operand: operand{kind: operandString, str: l.hexString()}}, true
		case c == '[':
			l.pos++
			return token{kind: tokenArrayStart}, true
		case c == ']':
			l.pos++
			return token{kind: tokenArrayEnd}, true
		case c == '/':
			l.pos++
			l.regular()
			return token{kind: tokenOperand, operand: operand{kind: operandOther}}, true
		case isPDFDelimiter(c):
			l.pos++
		default:
			word := l.regular()
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokenOperand, operand: operand{kind: operandNumber, num: n}}, true
			}
			if word == "true" || word == "false" || word == "null" {
				return token{kind: tokenOperand, operand: operand{kind: operandOther}}, true
			}
			return token{kind: tokenKeyword, keyword: word}, true
		}
	}
	return token{}, false
}

func (l *contentLexer) peek(offset int) byte {
	if l.pos+offset < len(l.data) {
		return l.data[l.pos+offset]
	}
	return 0
}

// regular consumes a run of regular characters
func (l *contentLexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// literalString reads a balanced (string), honouring escapes and nested parentheses
func (l *contentLexer) literalString() string {
	l.pos++ // (
	start, depth := l.pos, 1
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				raw := l.data[start:l.pos]
				l.pos++
				return decodePDFString(raw)
			}
		}
		l.pos++
	}
	return decodePDFString(l.data[start:])
}

// hexString reads a <hex> string; an odd final digit is padded with 0
func (l *contentLexer) hexString() string {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return ""
	}
	return string(out)
}

// skipInlineImage moves past the binary data of a BI ... ID ... EI block
func (l *contentLexer) skipInlineImage() {
	id := bytes.Index(l.data[l.pos:], []byte("ID"))
	if id < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += id + 2
	for l.pos < len(l.data) {
		end := bytes.Index(l.data[l.pos:], []byte("EI"))
		if end < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + end
		l.pos = at + 2
		if at > 0 && isPDFSpace(l.data[at-1]) && (l.pos >= len(l.data) || isPDFSpace(l.data[l.pos])) {
			return
		}
	}
}

// decodePDFString handles basic PDF escape sequences
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			// Octal escape (e.g. \040 for space)
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}
