// Package zujuansdk is a client for the zujuan exam-assembly site.
//
// The site authenticates through a delegated QR-code login: the client
// fetches a code image whose URL carries a ticket, polls a status endpoint
// while the user scans it with their phone, and finally exchanges the ticket
// for session cookies.
//
// Basic usage:
//
//	client := zujuansdk.NewSDKClient("https://zujuan.xkw.com", "https://zujuan.xkw.com/")
//	sess, err := client.NewSession()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	codeURL, err := sess.QRCodeURL(ctx)
//	ticket, err := zujuansdk.TicketFromURL(codeURL)
//	// show the code, then poll CheckScan until Confirmed
//	err = sess.ExchangeTicket(ctx, ticket)
//
//	name, err := sess.Username(ctx)
//
// A previously authenticated session is restored with ResumeSession and
// checked with Probe.
//
// Errors fall into three kinds, matchable with errors.Is against ErrParse,
// ErrAuth and ErrLogout, or with errors.As against the concrete types.
package zujuansdk
