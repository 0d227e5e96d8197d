package sandbox

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Query is a parsed list request: "sorts=-Model", "filters=Status==Online|Offline,count>=5",
// "search=text" and, for schedules, "startDate=2026-03-01&endDate=2026-03-08".
// Field names are case-insensitive and may address nested fields with dots.
type Query struct {
	Sorts     []SortTerm
	Filters   []Condition
	Search    string
	StartDate time.Time
	EndDate   time.Time
}

// SortTerm is one field of the sorts param
type SortTerm struct {
	Field string
	Desc  bool
}

// Condition is one term of the filters param. Values are alternatives, any of them matches.
type Condition struct {
	Field  string
	Op     string
	Values []string
}

// filter operators, longest first so "==" wins over "="
var operators = []string{"@=*", "==", "!=", ">=", "<=", "@=", ">", "<"}

// fieldAliases maps sort and filter names the client sends to record fields
var fieldAliases = map[string]map[string]string{
	KindVehicles: {
		"assigneddriver.firstname": "driver.name",
		"assigneddriver":           "driver.name",
		"group":                    "fleetGroup",
	},
	KindGroups: {
		"vehiclecount": "count",
	},
	KindOrganizations: {
		"orgadminname": "orgAdmin.name",
	},
	KindSchedules: {
		"fleetgroup": "vehicle.group.groupName",
		"vehicle":    "vehicle.plateNo",
		"driver":     "primaryDriver.name",
		"route":      "route.name",
	},
}

// ParseQuery reads list params of a request
func ParseQuery(v url.Values) (Query, error) {
	q := Query{Search: strings.TrimSpace(v.Get("search"))}
	for _, term := range splitList(v.Get("sorts")) {
		desc := strings.HasPrefix(term, "-")
		q.Sorts = append(q.Sorts, SortTerm{Field: strings.TrimPrefix(term, "-"), Desc: desc})
	}
	for _, term := range splitList(v.Get("filters")) {
		c, err := parseCondition(term)
		if err != nil {
			return Query{}, err
		}
		q.Filters = append(q.Filters, c)
	}
	var err error
	if q.StartDate, err = parseDate(v.Get("startDate")); err != nil {
		return Query{}, fmt.Errorf("bad startDate: %w", err)
	}
	if q.EndDate, err = parseDate(v.Get("endDate")); err != nil {
		return Query{}, fmt.Errorf("bad endDate: %w", err)
	}
	return q, nil
}

func parseCondition(term string) (Condition, error) {
	for _, op := range operators {
		field, value, ok := strings.Cut(term, op)
		if !ok {
			continue
		}
		if strings.TrimSpace(field) == "" {
			return Condition{}, fmt.Errorf("filter %q has no field", term)
		}
		return Condition{Field: strings.TrimSpace(field), Op: op, Values: strings.Split(value, "|")}, nil
	}
	return Condition{}, fmt.Errorf("filter %q has no operator", term)
}

// Apply filters, searches and sorts records of the kind. The input slice is not modified.
func (q Query) Apply(kind string, recs []Record) []Record {
	res := make([]Record, 0, len(recs))
	for _, r := range recs {
		if q.matches(kind, r) {
			res = append(res, r)
		}
	}
	if len(q.Sorts) == 0 {
		return res
	}
	sort.SliceStable(res, func(i, j int) bool {
		for _, s := range q.Sorts {
			c := compareValues(lookup(kind, res[i], s.Field), lookup(kind, res[j], s.Field))
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return res
}

func (q Query) matches(kind string, r Record) bool {
	for _, c := range q.Filters {
		if !c.Matches(lookup(kind, r, c.Field)) {
			return false
		}
	}
	if q.Search != "" && !containsText(r, strings.ToLower(q.Search)) {
		return false
	}
	if kind == KindSchedules && (!q.StartDate.IsZero() || !q.EndDate.IsZero()) {
		return q.overlaps(r)
	}
	return true
}

// overlaps checks the trip time span intersects the requested dates, the end date is inclusive
func (q Query) overlaps(r Record) bool {
	start, err := parseDate(str(r["startDate"]))
	if err != nil || start.IsZero() {
		return false
	}
	end, err := parseDate(str(r["endDate"]))
	if err != nil || end.IsZero() {
		end = start
	}
	if !q.StartDate.IsZero() && end.Before(q.StartDate) {
		return false
	}
	if !q.EndDate.IsZero() && !start.Before(q.EndDate.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Matches checks a field value against the condition. "null" stands for a missing or empty value.
func (c Condition) Matches(v any) bool {
	switch c.Op {
	case "!=":
		for _, want := range c.Values {
			if equalValue(v, want) {
				return false
			}
		}
		return true
	case "==", "@=", "@=*":
		for _, want := range c.Values {
			switch {
			case c.Op == "==" && equalValue(v, want):
				return true
			case c.Op == "@=" && strings.Contains(str(v), want):
				return true
			case c.Op == "@=*" && strings.Contains(strings.ToLower(str(v)), strings.ToLower(want)):
				return true
			}
		}
		return false
	}

	// ordering operators take a single value
	if len(c.Values) == 0 || isEmpty(v) {
		return false
	}
	cmp := compareValues(v, c.Values[0])
	switch c.Op {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}

func equalValue(v any, want string) bool {
	if strings.EqualFold(want, "null") {
		return isEmpty(v)
	}
	if b, ok := v.(bool); ok {
		wb, err := strconv.ParseBool(want)
		return err == nil && b == wb
	}
	return compareValues(v, want) == 0
}

// lookup resolves a dotted field path case-insensitively, aliases of the kind are tried first
func lookup(kind string, r Record, field string) any {
	if alias, ok := fieldAliases[kind][strings.ToLower(field)]; ok {
		field = alias
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if rec, isRec := cur.(Record); isRec {
				m = rec
			} else {
				return nil
			}
		}
		cur = nil
		if v, found := m[part]; found {
			cur = v
			continue
		}
		for k, v := range m {
			if strings.EqualFold(k, part) {
				cur = v
				break
			}
		}
	}
	return cur
}

// compareValues orders numbers numerically and everything else as case-insensitive text,
// empty values go first
func compareValues(a, b any) int {
	if isEmpty(a) || isEmpty(b) {
		switch {
		case isEmpty(a) && isEmpty(b):
			return 0
		case isEmpty(a):
			return -1
		default:
			return 1
		}
	}
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(str(a)), strings.ToLower(str(b)))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case map[string]any:
		return len(s) == 0
	case Record:
		return len(s) == 0
	case []any:
		return len(s) == 0
	}
	return false
}

// containsText searches string values of the record and its nested objects
func containsText(v any, text string) bool {
	switch t := v.(type) {
	case Record:
		return containsText(map[string]any(t), text)
	case map[string]any:
		for k, val := range t {
			if k == "id" {
				continue
			}
			if containsText(val, text) {
				return true
			}
		}
	case []any:
		for _, val := range t {
			if containsText(val, text) {
				return true
			}
		}
	case string:
		return strings.Contains(strings.ToLower(t), text)
	}
	return false
}

func splitList(s string) []string {
	var res []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

// parseDate accepts YYYY-MM-DD and RFC3339, empty string is a zero time
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("can't parse date %q: %w", s, err)
	}
	return t, nil
}
