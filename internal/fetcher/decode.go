package fetcher

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/bcnelson/roster-monitor/internal/domain"
)

// wireMember is a member object as returned by the remote API.
type wireMember struct {
	UniqueID string    `json:"uniqueId"`
	Name     string    `json:"name"`
	IsAdmin  adminFlag `json:"isAdmin"`
}

// adminFlag accepts booleans, "true"/"false" strings and numbers.
// null and a missing field both mean false.
type adminFlag bool

func (f *adminFlag) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*f = false
	case raw == "true" || raw == "false":
		*f = raw == "true"
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("isAdmin: %q is not a boolean", s)
		}
		*f = adminFlag(b)
	default:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("isAdmin: %s is not a boolean", raw)
		}
		*f = n != 0
	}
	return nil
}

// DecodeRoster parses a members response body.
// The body must be a JSON array of members or an object with a "members" array.
// The result is sorted admins first.
func DecodeRoster(body []byte) (domain.Roster, error) {
	trimmed := bytes.TrimSpace(body)

	var members []wireMember
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		if err := json.Unmarshal(trimmed, &members); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRoster, err)
		}
	case bytes.HasPrefix(trimmed, []byte("{")):
		var envelope struct {
			Members json.RawMessage `json:"members"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRoster, err)
		}
		inner := bytes.TrimSpace(envelope.Members)
		if !bytes.HasPrefix(inner, []byte("[")) {
			return nil, fmt.Errorf("%w: object has no members array", domain.ErrMalformedRoster)
		}
		if err := json.Unmarshal(inner, &members); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRoster, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected array or object with members", domain.ErrMalformedRoster)
	}

	roster := make(domain.Roster, 0, len(members))
	for i, m := range members {
		if m.UniqueID == "" {
			return nil, fmt.Errorf("%w: member %d has no uniqueId", domain.ErrMalformedRoster, i)
		}
		roster = append(roster, domain.Member{
			UniqueID: m.UniqueID,
			Name:     m.Name,
			IsAdmin:  bool(m.IsAdmin),
		})
	}
	roster.SortAdminsFirst()
	return roster, nil
}
