package ctxpath

import (
	"fmt"
	"strconv"
)

// ParseError is the error returned for a malformed context path.
type ParseError struct {
	Input  string
	Token  string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("context path %q %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("context path %q: token %q %s", e.Input, e.Token, e.Reason)
}

// Parse parses the given dot-separated context path into a Path.
//
// Each token is classified by its first character: '{' opens a map context,
// '[' opens a list context and an unbracketed token is a map-key context.
// Inside brackets, '=' marks a value context, '#' marks a rank context and
// anything else is an integer index context. Scalars wrapped in matching
// single or double quotes are forced to strings; unquoted scalars that parse
// as integers become integers.
func Parse(path string) (Path, error) {
	tokens := splitContexts(path)
	out := make(Path, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			return nil, &ParseError{Input: path, Reason: "contains empty context"}
		}

		var e Element
		var err error
		switch token[0] {
		case '{':
			e, err = parseBracketed(path, token, '}', MapIndex, MapRank, MapValue)
		case '[':
			e, err = parseBracketed(path, token, ']', ListIndex, ListRank, ListValue)
		default:
			e = Element{Kind: MapKey, Value: parseScalar(token)}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// splitContexts splits the path on dots outside quoted scalars, so keys like
// 'a.b' stay one token. A quote only opens where a scalar can start: at the
// beginning of a token or right after '=', '{' or '['.
func splitContexts(path string) []string {
	var (
		out   []string
		start int
		quote byte
	)
	for i := 0; i < len(path); i++ {
		switch c := path[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			if i == start || path[i-1] == '=' || path[i-1] == '{' || path[i-1] == '[' {
				quote = c
			}
		case c == '.':
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	return append(out, path[start:])
}

func parseBracketed(input, token string, closer byte, index, rank, value Kind) (Element, error) {
	last := token[len(token)-1]
	if last != closer {
		return Element{}, &ParseError{
			Input:  input,
			Token:  token,
			Reason: fmt.Sprintf("must end with %q but ends with %q", string(closer), string(last)),
		}
	}
	if len(token) < 3 {
		return Element{}, &ParseError{Input: input, Token: token, Reason: "has no content"}
	}

	content := token[1 : len(token)-1]
	switch {
	case content[0] == '=' && len(content) > 1:
		return Element{Kind: value, Value: parseScalar(content[1:])}, nil
	case content[0] == '#' && len(content) > 1:
		n, err := strconv.Atoi(content[1:])
		if err != nil {
			return Element{}, &ParseError{
				Input:  input,
				Token:  content[1:],
				Reason: "is not an integer rank",
			}
		}
		return Element{Kind: rank, Value: n}, nil
	default:
		n, err := strconv.Atoi(content)
		if err != nil {
			return Element{}, &ParseError{
				Input:  input,
				Token:  content,
				Reason: "is not an integer index",
			}
		}
		return Element{Kind: index, Value: n}, nil
	}
}

// parseScalar strips matching quotes to force a string, otherwise attempts an
// integer parse and falls back to the raw string.
func parseScalar(s string) any {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
