// Command powerplanctl is the operator CLI for PowerPlan: it applies database
// migrations, creates administrator accounts and prices plan files offline.
package main

func main() {
	Execute()
}
