package sqlstore

import (
	"fmt"
	"time"
)

// textTimeLayout is how timestamps are written to SQLite and libSQL.
const textTimeLayout = "2006-01-02 15:04:05.000000"

var readTimeLayouts = []string{
	textTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// nullTime scans whatever the driver hands back for a TIMESTAMP column:
// time.Time from pgx and most modernc reads, text from libSQL.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = x.UTC(), true
		return nil
	case string:
		return n.parse(x)
	case []byte:
		return n.parse(string(x))
	case int64:
		n.Time, n.Valid = time.Unix(x, 0).UTC(), true
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range readTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
