package database

import "time"

// Operator is a supervised agent and the extension their device
// registers as.
type Operator struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a dashboard account.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	FullName     string `json:"full_name"`
}

// Call is one row of the PBX call detail record table.
type Call struct {
	CallDate    time.Time `json:"calldate"`
	Src         string    `json:"src"`
	Dst         string    `json:"dst"`
	DContext    string    `json:"dcontext"`
	Channel     string    `json:"channel"`
	DstChannel  string    `json:"dstchannel"`
	Duration    int       `json:"duration"`
	Billsec     int       `json:"billsec"`
	Disposition string    `json:"disposition"`
	UniqueID    string    `json:"uniqueid"`
	LinkedID    string    `json:"linkedid"`
}
