package connectors

import "navledger/internal"

// MailConnector fetches raw messages from the mailbox distributors send
// valuation reports to.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
