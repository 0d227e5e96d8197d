package ui

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseMatch_Matches(t *testing.T) {
	tbl := []struct {
		name   string
		m      ResponseMatch
		url    string
		method string
		ok     bool
		want   bool
	}{
		{
			name: "endpoint and query",
			m:    ResponseMatch{Endpoint: EndpointVehicles, Query: "sorts="},
			url:  "https://fleet.example.com/core/api/v1/vehicles?page=1&sorts=-plateNo", method: "GET", ok: true,
			want: true,
		},
		{
			name: "failed response ignored",
			m:    ResponseMatch{Endpoint: EndpointVehicles, Query: "sorts="},
			url:  "https://fleet.example.com/core/api/v1/vehicles?sorts=plateNo", method: "GET", ok: false,
			want: false,
		},
		{
			name: "query missing",
			m:    ResponseMatch{Endpoint: EndpointGroups, Query: "filters="},
			url:  "https://fleet.example.com/core/api/v1/groups?page=1", method: "GET", ok: true,
			want: false,
		},
		{
			name: "other endpoint",
			m:    ResponseMatch{Endpoint: EndpointDrivers},
			url:  "https://fleet.example.com/core/api/v1/devices?sorts=model", method: "GET", ok: true,
			want: false,
		},
		{
			name: "method filter",
			m:    ResponseMatch{Endpoint: EndpointRoutes, Method: "GET"},
			url:  "https://fleet.example.com/core/api/v1/routes", method: "POST", ok: true,
			want: false,
		},
		{
			name: "method case insensitive",
			m:    ResponseMatch{Endpoint: EndpointSchedules, Query: "startDate", Method: "get"},
			url:  "https://fleet.example.com/core/api/v1/schedules?startDate=2026-03-01", method: "GET", ok: true,
			want: true,
		},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Matches(tt.url, tt.method, tt.ok))
		})
	}
}

func TestResponseMatch_String(t *testing.T) {
	assert.Equal(t, "GET /core/api/v1/routes ~", ResponseMatch{Endpoint: EndpointRoutes, Method: "GET"}.String())
	assert.Equal(t, "/core/api/v1/drivers ~sorts=", ResponseMatch{Endpoint: EndpointDrivers, Query: "sorts="}.String())
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "sorts=", orDefault("", "sorts="))
	assert.Equal(t, "sorts=-id", orDefault("sorts=-id", "sorts="))
}

func TestNewAPIAssertTimeout(t *testing.T) {
	assert.Equal(t, defaultAPITimeout, NewAPIAssert(nil, 0).timeout)
	assert.Equal(t, defaultAPITimeout/3, NewAPIAssert(nil, defaultAPITimeout/3).timeout)
}

type fakeRequest struct {
	playwright.Request
	method string
}

func (r fakeRequest) Method() string { return r.method }

type fakeResponse struct {
	playwright.Response
	url  string
	ok   bool
	req  fakeRequest
	body string
}

func (r *fakeResponse) URL() string                 { return r.url }
func (r *fakeResponse) Ok() bool                    { return r.ok }
func (r *fakeResponse) Request() playwright.Request { return r.req }
func (r *fakeResponse) JSON(v interface{}) error    { return json.Unmarshal([]byte(r.body), v) }

// eventPage emits the responses to the waiter the way playwright does, through a reflect call of the predicate
type eventPage struct {
	playwright.Page
	responses []*fakeResponse
	events    []string
}

func (p *eventPage) ExpectEvent(event string, cb func() error, options ...playwright.PageExpectEventOptions) (interface{}, error) {
	p.events = append(p.events, event)
	if err := cb(); err != nil {
		return nil, err
	}
	pred := reflect.ValueOf(options[0].Predicate)
	if pred.Call([]reflect.Value{reflect.ValueOf("console message")})[0].Bool() {
		return nil, errors.New("predicate accepted a non-response event")
	}
	for _, r := range p.responses {
		if pred.Call([]reflect.Value{reflect.ValueOf(r)})[0].Bool() {
			return r, nil
		}
	}
	return nil, errors.New("timeout")
}

func TestResponsePredicate(t *testing.T) {
	pred := reflect.ValueOf(responsePredicate(ResponseMatch{Endpoint: EndpointVehicles, Query: "sorts="}))
	call := func(v interface{}) bool { return pred.Call([]reflect.Value{reflect.ValueOf(v)})[0].Bool() }

	assert.True(t, call(&fakeResponse{url: "http://x" + EndpointVehicles + "?sorts=plateNo", ok: true,
		req: fakeRequest{method: "GET"}}))
	assert.False(t, call(&fakeResponse{url: "http://x" + EndpointVehicles + "?sorts=plateNo", ok: false,
		req: fakeRequest{method: "GET"}}))
	assert.False(t, call("not a response"), "non-response events are ignored, not a panic")
	assert.False(t, call(42))
}

func TestCapture(t *testing.T) {
	page := &eventPage{responses: []*fakeResponse{
		{url: "http://x" + EndpointDrivers + "?page=1", ok: true, req: fakeRequest{method: "GET"},
			body: `{"results":[{"firstName":"wrong"}]}`},
		{url: "http://x" + EndpointDrivers + "?sorts=firstName", ok: true, req: fakeRequest{method: "GET"},
			body: `{"results":[{"firstName":"Amal"},{"firstName":"Dmitri"}]}`},
	}}
	a := NewAPIAssert(page, time.Second)

	triggered := false
	recs, err := a.Drivers("sorts=firstName", func() error { triggered = true; return nil })
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Equal(t, []string{"response"}, page.events)
	require.Len(t, recs, 2)
	assert.Equal(t, "Amal", recs[0].FirstName)
	assert.Equal(t, "Dmitri", recs[1].FirstName)

	_, err = a.Drivers("sorts=-lastName", func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait for /core/api/v1/drivers ~sorts=-lastName")
}

func TestCapture_MaintenanceAfterSave(t *testing.T) {
	page := &eventPage{responses: []*fakeResponse{
		{url: "http://x" + EndpointMaintenance, ok: true, req: fakeRequest{method: "POST"},
			body: `{"id":4,"workshop":"Quick Fit"}`},
		{url: "http://x" + EndpointMaintenance + "?sorts=&filters=", ok: true, req: fakeRequest{method: "GET"},
			body: `{"results":[{"id":4,"vehicle":"AKP-1000","serviceType":"Tire Rotation","workshop":"Quick Fit",` +
				`"serviceDate":"2026-03-05","documents":["a.jpg","b.jpg"]}],"total":1}`},
	}}
	a := NewAPIAssert(page, time.Second)

	recs, err := a.Maintenance("", func() error { return nil })
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ServiceRecord{ID: 4, Vehicle: "AKP-1000", ServiceType: "Tire Rotation", Workshop: "Quick Fit",
		ServiceDate: "2026-03-05", Documents: []string{"a.jpg", "b.jpg"}}, recs[0])
}
