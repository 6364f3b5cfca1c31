// grbwatch/models/payload.go
package models

// NotificationPayload holds the display strings derived from one alert at
// notification time. It is never persisted.
type NotificationPayload struct {
	Trig          string `json:"trig"`
	SourceURL     string `json:"url"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	BATRA         string `json:"ra"`
	BATDec        string `json:"dec"`
	GalacticL     string `json:"l"`
	GalacticB     string `json:"b"`
	XRTRA         string `json:"ra1"`
	XRTDec        string `json:"dec1"`
	Extinction    string `json:"av"`
	LightCurveURL string `json:"baturl"`
}
