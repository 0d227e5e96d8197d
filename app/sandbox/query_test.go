package sandbox

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	v := url.Values{}
	v.Set("sorts", "-Model, plateNo,")
	v.Set("filters", "Status==Online|Offline,count>=5,make@=*toy")
	v.Set("search", "  akp ")
	v.Set("startDate", "2026-03-01")
	v.Set("endDate", "2026-03-08T00:00:00Z")

	q, err := ParseQuery(v)
	require.NoError(t, err)
	assert.Equal(t, []SortTerm{{Field: "Model", Desc: true}, {Field: "plateNo"}}, q.Sorts)
	assert.Equal(t, []Condition{
		{Field: "Status", Op: "==", Values: []string{"Online", "Offline"}},
		{Field: "count", Op: ">=", Values: []string{"5"}},
		{Field: "make", Op: "@=*", Values: []string{"toy"}},
	}, q.Filters)
	assert.Equal(t, "akp", q.Search)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), q.StartDate)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), q.EndDate)

	tests := []struct {
		name  string
		param string
		value string
	}{
		{"no operator", "filters", "status"},
		{"no field", "filters", "==Online"},
		{"bad start date", "startDate", "March"},
		{"bad end date", "endDate", "2026-13-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(url.Values{tt.param: {tt.value}})
			assert.Error(t, err)
		})
	}

	q, err = ParseQuery(url.Values{"sorts": {""}, "filters": {""}})
	require.NoError(t, err)
	assert.Empty(t, q.Sorts)
	assert.Empty(t, q.Filters)
	assert.True(t, q.StartDate.IsZero())
}

func TestCondition_Matches(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		v    any
		want bool
	}{
		{"equal text case-insensitive", Condition{Op: "==", Values: []string{"online"}}, "Online", true},
		{"equal any of", Condition{Op: "==", Values: []string{"Van", "SUV"}}, "SUV", true},
		{"equal miss", Condition{Op: "==", Values: []string{"Van"}}, "Sedan", false},
		{"equal number", Condition{Op: "==", Values: []string{"12"}}, float64(12), true},
		{"equal bool", Condition{Op: "==", Values: []string{"true"}}, true, true},
		{"equal bool miss", Condition{Op: "==", Values: []string{"true"}}, false, false},
		{"null matches missing", Condition{Op: "==", Values: []string{"null"}}, nil, true},
		{"null matches blank", Condition{Op: "==", Values: []string{"null"}}, " ", true},
		{"not equal", Condition{Op: "!=", Values: []string{"true"}}, nil, true},
		{"not equal any", Condition{Op: "!=", Values: []string{"a", "b"}}, "b", false},
		{"contains", Condition{Op: "@=", Values: []string{"Dep"}}, "North Depot", true},
		{"contains case-sensitive", Condition{Op: "@=", Values: []string{"dep"}}, "North Depot", false},
		{"contains any case", Condition{Op: "@=*", Values: []string{"dep"}}, "North Depot", true},
		{"greater or equal", Condition{Op: ">=", Values: []string{"5"}}, 5, true},
		{"less", Condition{Op: "<", Values: []string{"5"}}, float64(4.5), true},
		{"less miss", Condition{Op: "<", Values: []string{"5"}}, 10, false},
		{"greater", Condition{Op: ">", Values: []string{"3600"}}, float64(7200), true},
		{"less or equal dates", Condition{Op: "<=", Values: []string{"2026-03-01"}}, "2026-02-28", true},
		{"ordering on empty", Condition{Op: ">", Values: []string{"0"}}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Matches(tt.v))
		})
	}
}

func TestQuery_Apply(t *testing.T) {
	vehicles := []Record{
		{"id": 1, "plateNo": "AKP-1000", "model": "corolla", "fleetGroup": "North Depot", "driver": map[string]any{"name": "Omar"}},
		{"id": 2, "plateNo": "BNW-1137", "model": "Transit", "fleetGroup": "South Depot"},
		{"id": 3, "plateNo": "CXR-1274", "model": "Actros", "fleetGroup": "North Depot", "driver": map[string]any{"name": "Ahmed"}},
	}
	ids := func(recs []Record) []int {
		res := make([]int, 0, len(recs))
		for _, r := range recs {
			res = append(res, r.ID())
		}
		return res
	}

	tests := []struct {
		name string
		q    Query
		want []int
	}{
		{"no terms keeps order", Query{}, []int{1, 2, 3}},
		{"sort text case-insensitive", Query{Sorts: []SortTerm{{Field: "Model"}}}, []int{3, 1, 2}},
		{"sort desc", Query{Sorts: []SortTerm{{Field: "plateNo", Desc: true}}}, []int{3, 2, 1}},
		{"sort by alias, empty first", Query{Sorts: []SortTerm{{Field: "assignedDriver.firstName"}}}, []int{2, 3, 1}},
		{"second sort term", Query{Sorts: []SortTerm{{Field: "group"}, {Field: "plateNo", Desc: true}}}, []int{3, 1, 2}},
		{"filter by alias", Query{Filters: []Condition{{Field: "group", Op: "==", Values: []string{"North Depot"}}}}, []int{1, 3}},
		{"filter nested field", Query{Filters: []Condition{{Field: "driver.name", Op: "==", Values: []string{"ahmed"}}}}, []int{3}},
		{"search nested text", Query{Search: "omar"}, []int{1}},
		{"search without match", Query{Search: "volvo"}, []int{}},
		{"search and filter", Query{Search: "depot", Filters: []Condition{{Field: "model", Op: "!=", Values: []string{"Transit"}}}}, []int{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.q.Apply(KindVehicles, vehicles)))
		})
	}
	assert.Equal(t, 1, vehicles[0].ID(), "input not reordered")
}

func TestQuery_ApplySchedules(t *testing.T) {
	trips := []Record{
		{"id": 1, "startDate": "2026-03-01T08:00:00Z", "endDate": "2026-03-01T12:00:00Z",
			"vehicle": map[string]any{"plateNo": "AKP-1000", "group": map[string]any{"groupName": "North Depot"}}},
		{"id": 2, "startDate": "2026-03-05T22:00:00Z", "endDate": "2026-03-06T02:00:00Z",
			"vehicle": map[string]any{"plateNo": "BNW-1137", "group": map[string]any{"groupName": "South Depot"}}},
		{"id": 3, "startDate": "2026-03-09T08:00:00Z"},
		{"id": 4},
	}
	day := func(s string) time.Time {
		d, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return d
	}
	ids := func(recs []Record) []int {
		res := make([]int, 0, len(recs))
		for _, r := range recs {
			res = append(res, r.ID())
		}
		return res
	}

	tests := []struct {
		name string
		q    Query
		want []int
	}{
		{"no range keeps all", Query{}, []int{1, 2, 3, 4}},
		{"single day", Query{StartDate: day("2026-03-01"), EndDate: day("2026-03-01")}, []int{1}},
		{"overnight trip overlaps next day", Query{StartDate: day("2026-03-06"), EndDate: day("2026-03-06")}, []int{2}},
		{"week inclusive end", Query{StartDate: day("2026-03-02"), EndDate: day("2026-03-09")}, []int{2, 3}},
		{"open end", Query{StartDate: day("2026-03-05")}, []int{2, 3}},
		{"fleet group alias", Query{Filters: []Condition{{Field: "fleetGroup", Op: "==", Values: []string{"South Depot"}}}}, []int{2}},
		{"vehicle alias", Query{Filters: []Condition{{Field: "vehicle", Op: "==", Values: []string{"AKP-1000", "BNW-1137"}}}}, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.q.Apply(KindSchedules, trips)))
		})
	}
}

func TestDistinctValues(t *testing.T) {
	recs := []Record{
		{"status": "Offline"}, {"status": "online"}, {"status": "Offline"}, {"status": ""}, {},
	}
	assert.Equal(t, []string{"Offline", "online"}, distinctValues(KindDevices, "status", recs))
	assert.Equal(t, []string{}, distinctValues(KindDevices, "model", recs))
}

func TestIsEmpty(t *testing.T) {
	for _, v := range []any{nil, "", "  ", map[string]any{}, Record{}, []any{}} {
		assert.True(t, isEmpty(v), "%#v", v)
	}
	for _, v := range []any{"x", 0, false, map[string]any{"a": 1}, Record{"name": "Airport"}, []any{1}} {
		assert.False(t, isEmpty(v), "%#v", v)
	}
	assert.True(t, equalValue(Record{}, "null"), "empty nested record matches null")
}
