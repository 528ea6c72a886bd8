package models

import "time"

// Device represents a telematics terminal as stored locally.
// Devices are keyed by terid; the sync engine never deletes them.
type Device struct {
	ID             int64     `json:"id"`
	Terid          string    `json:"terid"`
	CarLicense     string    `json:"carLicense"`
	SIM            string    `json:"sim"`
	Channel        int       `json:"channel"`
	PlateColor     int       `json:"plateColor"`
	GroupID        int       `json:"groupId"`
	CName          string    `json:"cname"`
	DeviceType     string    `json:"deviceType"`
	LinkType       string    `json:"linkType"`
	DeviceUsername string    `json:"deviceUsername"`
	DevicePassword string    `json:"-"`
	RegisterIP     string    `json:"registerIp"`
	RegisterPort   int       `json:"registerPort"`
	TransmitIP     string    `json:"transmitIp"`
	TransmitPort   int       `json:"transmitPort"`
	ChannelEnable  int       `json:"channelEnable"`
	CompanyBranch  string    `json:"companyBranch"`
	CompanyName    string    `json:"companyName"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// DeviceRecord is the raw device payload returned by the vendor API.
// The vendor is inconsistent about the license-plate key, so both
// spellings are captured.
type DeviceRecord struct {
	Terid          string `json:"terid"`
	DeviceID       string `json:"deviceid"`
	Carlicence     string `json:"carlicence"`
	Carlicense     string `json:"carlicense"`
	SIM            string `json:"sim"`
	Channel        int    `json:"channel"`
	ChannelCount   int    `json:"channelcount"`
	PlateColor     int    `json:"platecolor"`
	GroupID        int    `json:"groupid"`
	CName          string `json:"cname"`
	DeviceType     string `json:"devicetype"`
	LinkType       string `json:"linktype"`
	DeviceUsername string `json:"deviceusername"`
	DevicePassword string `json:"devicepassword"`
	RegisterIP     string `json:"registerip"`
	RegisterPort   int    `json:"registerport"`
	TransmitIP     string `json:"transmitip"`
	TransmitPort   int    `json:"transmitport"`
	En             int    `json:"en"`
	CompanyBranch  string `json:"companybranch"`
	CompanyName    string `json:"companyname"`
}

// GroupRecord is the raw device-group payload returned by the vendor API.
// Groups are fetched for ad-hoc inspection and are not persisted.
type GroupRecord struct {
	GroupID   int    `json:"groupid"`
	GroupName string `json:"groupname"`
	ParentID  int    `json:"parentid"`
}

// NormalizeDevice maps a raw API device record onto the local schema,
// filling vendor omissions with the same defaults the store expects.
func NormalizeDevice(rec DeviceRecord) Device {
	terid := rec.Terid
	if terid == "" {
		terid = rec.DeviceID
	}

	license := rec.Carlicence
	if license == "" {
		license = rec.Carlicense
	}
	if license == "" {
		license = "Unknown"
	}

	sim := rec.SIM
	if sim == "" {
		sim = "Unknown"
	}

	channel := rec.Channel
	if channel == 0 {
		channel = rec.ChannelCount
	}

	deviceType := rec.DeviceType
	if deviceType == "" {
		deviceType = "0"
	}
	linkType := rec.LinkType
	if linkType == "" {
		linkType = "0"
	}

	return Device{
		Terid:          terid,
		CarLicense:     license,
		SIM:            sim,
		Channel:        channel,
		PlateColor:     rec.PlateColor,
		GroupID:        rec.GroupID,
		CName:          rec.CName,
		DeviceType:     deviceType,
		LinkType:       linkType,
		DeviceUsername: rec.DeviceUsername,
		DevicePassword: rec.DevicePassword,
		RegisterIP:     rec.RegisterIP,
		RegisterPort:   rec.RegisterPort,
		TransmitIP:     rec.TransmitIP,
		TransmitPort:   rec.TransmitPort,
		ChannelEnable:  rec.En,
		CompanyBranch:  rec.CompanyBranch,
		CompanyName:    rec.CompanyName,
	}
}
