package live

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"traintracker/internal/models"
)

// placeholderTime is the sentinel for a missing arrival or departure
const placeholderTime = "00:00"

// Result is the normalized outcome of a live enquiry for one train
type Result struct {
	TrainNo  string
	Name     string
	Schedule []ScheduleStop
}

// ScheduleStop is a single parsed row of the enquiry schedule table
type ScheduleStop struct {
	Code      string
	Name      string
	Arrival   string
	Departure string
	Time      string // Display time: departure when present, else arrival
}

// Stops converts the parsed schedule to store-ready stops
func (r *Result) Stops() []models.Stop {
	stops := make([]models.Stop, 0, len(r.Schedule))
	for _, s := range r.Schedule {
		stops = append(stops, models.Stop{Code: s.Code, Name: s.Name, Time: s.Time})
	}
	return stops
}

// parseSchedulePage extracts the train name and schedule rows from an
// enquiry response page. The page carries several tables; the schedule
// table is identified by its rows having at least five cells, with each
// table's first row treated as a header and skipped. Returns nil when
// no schedule rows could be extracted.
func parseSchedulePage(body io.Reader, trainNo string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	// Train name sits in the summary table at the top of the page
	name := strings.TrimSpace(doc.Find("table").First().Find("tr").Eq(1).Find("td").Eq(1).Text())

	var schedule []ScheduleStop
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 5 || rowIdx == 0 {
				return
			}

			code := strings.TrimSpace(cells.Eq(1).Text())
			stationName := strings.TrimSpace(cells.Eq(2).Text())
			if code == "" || stationName == "" {
				return
			}

			arrival := timeOrPlaceholder(cells.Eq(3).Text())
			departure := timeOrPlaceholder(cells.Eq(4).Text())

			schedule = append(schedule, ScheduleStop{
				Code:      code,
				Name:      stationName,
				Arrival:   arrival,
				Departure: departure,
				Time:      displayTime(arrival, departure),
			})
		})
	})

	if len(schedule) == 0 {
		return nil, nil
	}

	if name == "" {
		name = "Train " + trainNo
	}

	return &Result{TrainNo: trainNo, Name: name, Schedule: schedule}, nil
}

// timeOrPlaceholder normalizes an empty cell to the "00:00" sentinel
func timeOrPlaceholder(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return placeholderTime
	}
	return t
}

// displayTime picks the departure time when it is real, else the arrival.
// Terminal stations have no departure, origin stations no arrival.
func displayTime(arrival, departure string) string {
	if departure != placeholderTime {
		return departure
	}
	return arrival
}
