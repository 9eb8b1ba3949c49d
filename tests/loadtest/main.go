package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"
)

const (
	baseURL       = "http://127.0.0.1:18090"
	workers       = 50
	phaseDuration = 10 * time.Second
	numSites      = 20
	numInstances  = 4
)

var statusTypes = []string{"device", "weather", "enclosure"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type op struct {
	weight int
	run    func(rng *rand.Rand) result
}

type scenario struct {
	name string
	ops  []op
}

func (s scenario) pick(rng *rand.Rand) op {
	total := 0
	for _, o := range s.ops {
		total += o.weight
	}
	n := rng.Intn(total)
	for _, o := range s.ops {
		if n < o.weight {
			return o
		}
		n -= o.weight
	}
	return s.ops[len(s.ops)-1]
}

func main() {
	fmt.Println("=== Site Status Load Test ===")
	fmt.Printf("workers=%d duration=%s sites=%d instances=%d\n\n", workers, phaseDuration, numSites, numInstances)

	if err := waitForServer(6 * time.Second); err != nil {
		fmt.Println("server not responding:", err)
		os.Exit(1)
	}

	scenarios := []scenario{
		{"seed", []op{{1, doPostStatus}}},
		{"mixed", []op{
			{65, doPostStatus},
			{5, doPostPhase},
			{10, doGetStatus},
			{10, doGetComplete},
			{10, func(*rand.Rand) result { return doGetOpen() }},
		}},
		{"read-heavy", []op{
			{10, doPostStatus},
			{25, doGetStatus},
			{25, doGetComplete},
			{20, doGetPhase},
			{20, func(*rand.Rand) result { return doGetOpen() }},
		}},
	}
	for _, sc := range scenarios {
		fmt.Printf("--- %s ---\n", sc.name)
		rec := run(sc, phaseDuration)
		rec.report(os.Stdout, phaseDuration)
		fmt.Println()
	}
}

func waitForServer(limit time.Duration) error {
	deadline := time.Now().Add(limit)
	for {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func run(sc scenario, d time.Duration) *recorder {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	rec := newRecorder()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil {
				rec.add(sc.pick(rng).run(rng))
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()
	return rec
}

type endpointStats struct {
	errors    int
	codes     map[int]int
	latencies []time.Duration
}

type recorder struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newRecorder() *recorder {
	return &recorder{endpoints: make(map[string]*endpointStats)}
}

func (r *recorder) add(res result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.endpoints[res.endpoint]
	if !ok {
		st = &endpointStats{codes: make(map[int]int)}
		r.endpoints[res.endpoint] = st
	}
	st.latencies = append(st.latencies, res.latency)
	st.codes[res.status]++
	if res.err {
		st.errors++
	}
}

func (r *recorder) report(out io.Writer, d time.Duration) {
	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "endpoint\treqs\trps\terrors\tp50\tp95\tp99\tmax\t")
	var total, errs int
	for _, name := range names {
		st := r.endpoints[name]
		lat := st.latencies
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		total += len(lat)
		errs += st.errors
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t%d\t%s\t%s\t%s\t%s\t\n",
			name, len(lat), float64(len(lat))/d.Seconds(), st.errors,
			quantile(lat, 0.50), quantile(lat, 0.95), quantile(lat, 0.99), quantile(lat, 1))
	}
	fmt.Fprintf(tw, "total\t%d\t%.0f\t%d\t\t\t\t\t\n", total, float64(total)/d.Seconds(), errs)
	tw.Flush()
}

// quantile expects sorted input.
func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx].Round(time.Microsecond)
}

func site(rng *rand.Rand) string {
	return fmt.Sprintf("site%02d", rng.Intn(numSites))
}

func statusPayload(rng *rand.Rand, statusType string) map[string]interface{} {
	instance := fmt.Sprintf("%s%d", statusType, rng.Intn(numInstances)+1)
	fields := map[string]interface{}{}
	switch statusType {
	case "weather":
		fields["temperature"] = rng.Float64()*30 - 5
		fields["wx_ok"] = []string{"Yes", "No"}[rng.Intn(2)]
	case "enclosure":
		fields["shutter_status"] = []string{"Open", "Closed", ""}[rng.Intn(3)]
	default:
		fields["ra"] = rng.Float64() * 24
		fields["dec"] = rng.Float64()*180 - 90
	}
	group := map[string]string{
		"weather":   "observing_conditions",
		"enclosure": "enclosure",
		"device":    "mount",
	}[statusType]
	return map[string]interface{}{group: map[string]interface{}{instance: fields}}
}

func send(method, endpoint, url string, body interface{}) result {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func doPostStatus(rng *rand.Rand) result {
	statusType := statusTypes[rng.Intn(len(statusTypes))]
	body := map[string]interface{}{
		"statusType": statusType,
		"status":     statusPayload(rng, statusType),
	}
	return send(http.MethodPost, "POST /status/{site}", baseURL+"/status/"+site(rng), body)
}

func doPostPhase(rng *rand.Rand) result {
	body := map[string]string{
		"site":    site(rng),
		"message": fmt.Sprintf("Exposure %d of 20", rng.Intn(20)+1),
	}
	return send(http.MethodPost, "POST /phase_status", baseURL+"/phase_status", body)
}

func doGetStatus(rng *rand.Rand) result {
	statusType := statusTypes[rng.Intn(len(statusTypes))]
	url := fmt.Sprintf("%s/status/%s/%s", baseURL, site(rng), statusType)
	return send(http.MethodGet, "GET /status/{site}/{type}", url, nil)
}

func doGetComplete(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/status/%s/complete", baseURL, site(rng))
	return send(http.MethodGet, "GET /status/{site}/complete", url, nil)
}

func doGetPhase(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/phase_status/%s?max_items=5", baseURL, site(rng))
	return send(http.MethodGet, "GET /phase_status/{site}", url, nil)
}

func doGetOpen() result {
	return send(http.MethodGet, "GET /status/open", baseURL+"/status/open", nil)
}
