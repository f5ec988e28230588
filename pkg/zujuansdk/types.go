package zujuansdk

// Status codes reported by the scan status endpoint. Only ScanCodeConfirmed
// is meaningful; every other value means the scan has not happened yet.
const (
	ScanCodePending   = 0
	ScanCodeConfirmed = 1
)

// UnknownUsername is returned when the profile page has no display name.
const UnknownUsername = "unknown user"

// Paths locates each endpoint relative to SDKClient.BaseURL.
type Paths struct {
	Login      string
	QRCode     string
	ScanStatus string
	Exchange   string
	Profile    string
	Listing    string
}

// DefaultPaths returns the endpoint layout of the live service.
func DefaultPaths() Paths {
	return Paths{
		Login:      "/login",
		QRCode:     "/login/qrcode",
		ScanStatus: "/wechat/issubscribe",
		Exchange:   "/wechat/login",
		Profile:    "/user",
		Listing:    "/zujuan",
	}
}

// ScanStatus is the body of a scan status poll.
type ScanStatus struct {
	Code int `json:"code"`
}

// Confirmed reports whether the remote side has seen the scan.
func (s ScanStatus) Confirmed() bool { return s.Code == ScanCodeConfirmed }

// ListingRecord is one entry of the authenticated listing page.
type ListingRecord struct {
	PID  string `json:"pid"`
	Text string `json:"text"`
	Href string `json:"href"`
}
