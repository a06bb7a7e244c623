package pushsubscription

import "time"

type Subscription struct {
	ID        string    `yaml:"id" json:"id"`
	Endpoint  string    `yaml:"endpoint" json:"endpoint"`
	P256dhKey string    `yaml:"p256dh_key" json:"-"`
	AuthKey   string    `yaml:"auth_key" json:"-"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}
