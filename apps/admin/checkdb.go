package main

import "fmt"

var checkDBTables = []string{"users", "grades", "students", "annotations", "emergency_requests"}

// checkDB prints row counts per table and the registered accounts so an
// operator can quickly tell an empty store from a broken one.
func (cli *commandLine) checkDB() error {
	fmt.Println("Table counts:")
	for _, table := range checkDBTables {
		var count int
		if err := cli.db.Get(&count, "SELECT COUNT(*) FROM "+table); err != nil {
			return err
		}
		fmt.Printf("  %-20s %d\n", table, count)
	}

	var users []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
		Role     string `db:"role"`
		Active   bool   `db:"active"`
	}
	if err := cli.db.Select(&users, "SELECT username, email, role, active FROM users ORDER BY id"); err != nil {
		return err
	}

	fmt.Println("\nAccounts:")
	if len(users) == 0 {
		fmt.Println("  none - run `admin adduser` to create one")
		return nil
	}
	for _, usr := range users {
		fmt.Printf("  - %s (%s) username=%s active=%t\n", usr.Email, usr.Role, usr.Username, usr.Active)
	}
	return nil
}
