package models

// Counter is a named monotonic counter. The subscription id counter starts
// at 0 and is read-and-incremented under a row lock so ids are never reused.
type Counter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}

// CounterSubscriptionID names the counter that mints subscription ids.
const CounterSubscriptionID = "subscription_id"
