package connectors

import "filaflow/internal"

type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
