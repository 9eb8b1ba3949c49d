package services

import (
	"sitestatus/internal/models"
	"time"
)

var wxOkTruthy = map[string]struct{}{
	"Yes":  {},
	"yes":  {},
	"True": {},
	"true": {},
}

// AggregateOpenStatus groups rows by site and reports the age in seconds of
// each statusType. Weather rows also yield wx_ok from the first weather
// instance's observing_conditions.
func AggregateOpenStatus(entries []models.StatusEntry, now time.Time) map[string]models.OpenStatusView {
	nowS := float64(now.UnixNano()) / 1e9
	result := make(map[string]models.OpenStatusView)

	for _, e := range entries {
		view, ok := result[e.Site]
		if !ok {
			view = models.OpenStatusView{Types: make(map[string]models.StatusAge)}
		}
		view.Types[e.StatusType] = models.StatusAge{
			StatusAgeS: nowS - float64(e.ServerTimestampMs)/1000,
		}
		if e.StatusType == models.StatusTypeWeather {
			if wx, found := weatherOk(e.Status); found {
				view.WxOk = &wx
			}
		}
		result[e.Site] = view
	}
	return result
}

// weatherOk reads observing_conditions.<first>.wx_ok.val. found is false
// when any step of the path is absent.
func weatherOk(status *models.Map) (ok bool, found bool) {
	v, has := status.Get("observing_conditions")
	if !has {
		return false, false
	}
	conditions, isMap := v.AsMap()
	if !isMap || conditions.Len() == 0 {
		return false, false
	}
	first, _ := conditions.Get(conditions.Keys()[0])
	instance, isMap := first.AsMap()
	if !isMap {
		return false, false
	}
	v, has = instance.Get("wx_ok")
	if !has {
		return false, false
	}
	field, isMap := v.AsMap()
	if !isMap {
		return false, false
	}
	val, has := field.Get("val")
	if !has {
		return false, false
	}
	return isTruthy(val), true
}

func isTruthy(v models.Value) bool {
	if s, ok := v.AsString(); ok {
		_, in := wxOkTruthy[s]
		return in
	}
	b, ok := v.AsBool()
	return ok && b
}
