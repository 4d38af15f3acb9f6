// Package ais ingests vessel position reports from an upstream AIS feed (or,
// absent an upstream credential, a local simulator) and hands normalized
// messages off to a persistence worker pool through a bounded queue.
package ais

import "time"

// Message is a normalized AIS position report, independent of whatever wire
// shape the upstream feed used to produce it.
type Message struct {
	MMSI         string
	TimestampUTC time.Time
	Lat          float64
	Lon          float64
	SOG          *float64
	COG          *float64
	Heading      *float64
	NavStatus    int
	Destination  *string
	ETA          *time.Time
}

// upstreamEnvelope mirrors the inbound JSON record shape: MetaData carries
// identity/time fields, Message.PositionReport carries the kinematic ones.
type upstreamEnvelope struct {
	MetaData struct {
		MMSI        string  `json:"MMSI"`
		TimeUTC     string  `json:"time_utc"`
		Destination *string `json:"Destination"`
		ETA         *string `json:"ETA"`
	} `json:"MetaData"`
	Message struct {
		PositionReport struct {
			Latitude           float64  `json:"Latitude"`
			Longitude          float64  `json:"Longitude"`
			Sog                *float64 `json:"Sog"`
			Cog                *float64 `json:"Cog"`
			TrueHeading        *float64 `json:"TrueHeading"`
			NavigationalStatus int      `json:"NavigationalStatus"`
		} `json:"PositionReport"`
	} `json:"Message"`
}

// SubscribeRequest is the message sent immediately after the upstream socket
// opens, restricting the feed to position reports in the given bounding box.
type SubscribeRequest struct {
	APIKey              string        `json:"APIKey"`
	BoundingBoxes       [][][]float64 `json:"BoundingBoxes"`
	FilterMessageTypes  []string      `json:"FilterMessageTypes"`
}

// WorldBoundingBox is the default subscribe filter: the entire globe.
func WorldBoundingBox() [][][]float64 {
	return [][][]float64{{{-180, -90}, {180, 90}}}
}

func toMessage(env upstreamEnvelope) (Message, error) {
	ts, err := time.Parse(time.RFC3339, env.MetaData.TimeUTC)
	if err != nil {
		return Message{}, err
	}
	m := Message{
		MMSI:         env.MetaData.MMSI,
		TimestampUTC: ts,
		Lat:          env.Message.PositionReport.Latitude,
		Lon:          env.Message.PositionReport.Longitude,
		SOG:          env.Message.PositionReport.Sog,
		COG:          env.Message.PositionReport.Cog,
		Heading:      env.Message.PositionReport.TrueHeading,
		NavStatus:    env.Message.PositionReport.NavigationalStatus,
		Destination:  env.MetaData.Destination,
	}
	if env.MetaData.ETA != nil {
		if eta, err := time.Parse(time.RFC3339, *env.MetaData.ETA); err == nil {
			m.ETA = &eta
		}
	}
	return m, nil
}
