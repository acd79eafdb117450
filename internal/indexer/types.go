package indexer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const tokensQuery = `query Tokens($chainId: Int!, $first: Int!, $skip: Int!) {
  tokens(
    where: {chainId: $chainId}
    first: $first
    skip: $skip
    orderBy: totalValuePooledUsd
    orderDirection: desc
  ) {
    address
    name
    symbol
    logoUrl
    totalValuePooledUsd
    priceUsd
  }
}`

// graphQLRequest is the POST body of a GraphQL query.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the GraphQL response envelope.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors graphQLErrors   `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLErrors []graphQLError

func (e graphQLErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ge := range e {
		msgs[i] = ge.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type tokensData struct {
	Tokens []indexedToken `json:"tokens"`
}

type indexedToken struct {
	Address             string  `json:"address"`
	Name                string  `json:"name"`
	Symbol              string  `json:"symbol"`
	LogoURL             string  `json:"logoUrl"`
	TotalValuePooledUsd decimal `json:"totalValuePooledUsd"`
	PriceUsd            decimal `json:"priceUsd"`
}

// decimal accepts a JSON number, a numeric string or null.
type decimal float64

func (d *decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", s, err)
	}
	*d = decimal(f)
	return nil
}
