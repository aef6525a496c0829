package notify

import (
	"database/sql"
	"fmt"

	"shelfwatch/internal/models"
	"shelfwatch/internal/rules"
	"shelfwatch/internal/users"
)

// ResolveRecipients computes the concrete set of users a rule notifies:
// active users in the rule's hotel/department scope whose role is in
// the rule's recipient list. Department-scoped rules additionally pull
// in hotel-wide admin roles from outside that department, since admins
// must see every department's alerts.
//
// An empty result means "nothing to notify", never an error.
func ResolveRecipients(db *sql.DB, rule *rules.Rule) ([]users.User, error) {
	out, err := users.ListActive(db, rule.HotelID, rule.DepartmentID, rule.Roles)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients for rule %d: %w", rule.ID, err)
	}
	if rule.DepartmentID == nil {
		return out, nil
	}

	admins, err := users.ListActive(db, rule.HotelID, nil, models.AdminRoles)
	if err != nil {
		return nil, fmt.Errorf("resolve admin recipients for rule %d: %w", rule.ID, err)
	}

	seen := make(map[int64]struct{}, len(out))
	for _, u := range out {
		seen[u.ID] = struct{}{}
	}
	for _, u := range admins {
		if _, ok := seen[u.ID]; !ok {
			out = append(out, u)
		}
	}
	return out, nil
}
