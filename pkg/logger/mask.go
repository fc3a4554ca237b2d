package logger

import "go.uber.org/zap"

// MaskID hides all but the last four characters of an identifier.
func MaskID(id string) string {
	if len(id) <= 4 {
		return "****"
	}
	return "****" + id[len(id)-4:]
}

// Account is a zap field carrying a masked account identifier.
func Account(id string) zap.Field {
	return zap.String("account_id", MaskID(id))
}

// Goal is a zap field carrying a masked savings goal identifier.
func Goal(id string) zap.Field {
	return zap.String("goal_id", MaskID(id))
}
