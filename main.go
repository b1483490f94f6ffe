// Command billsync ingests Stripe webhooks into the billing database.
package main

import "github.com/kamilpajak/billsync/cmd/billsync"

func main() {
	billsync.Execute()
}
