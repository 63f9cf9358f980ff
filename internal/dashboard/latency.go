package dashboard

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	submissionsMetric   = "dental_booking_submissions_total"
	submitLatencyMetric = "dental_booking_submit_latency_seconds"
)

// BookingSnapshot summarizes public booking traffic since process start.
type BookingSnapshot struct {
	Outcomes map[string]int64 `json:"outcomes"`
	Total    int64            `json:"total"`
	P95Ms    float64          `json:"p95_ms"`
}

func snapshotBookings(gatherer prometheus.Gatherer) BookingSnapshot {
	out := BookingSnapshot{Outcomes: map[string]int64{}}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case submissionsMetric:
			for _, metric := range mf.Metric {
				if metric == nil || metric.GetCounter() == nil {
					continue
				}
				n := int64(metric.GetCounter().GetValue())
				out.Outcomes[labelValue(metric, "outcome")] += n
				out.Total += n
			}
		case submitLatencyMetric:
			// accepted submissions only; rejections return before any write
			for _, metric := range mf.Metric {
				if metric == nil || labelValue(metric, "outcome") != "accepted" {
					continue
				}
				h := metric.GetHistogram()
				if h == nil {
					continue
				}
				sampleCount += h.GetSampleCount()
				for _, b := range h.Bucket {
					if b == nil {
						continue
					}
					cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
				}
			}
		}
	}

	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return out
	}
	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)
	out.P95Ms = histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000.0
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	if q >= 1 {
		for i := len(uppers) - 1; i >= 0; i-- {
			if !math.IsInf(uppers[i], 1) {
				return uppers[i]
			}
		}
		return 0
	}

	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		fraction := math.Min(math.Max((target-prevCum)/bucketCount, 0), 1)
		return prevUpper + fraction*(upper-prevUpper)
	}
	return uppers[len(uppers)-1]
}
