package domain

import "github.com/totegamma/concrnt-adz"

type Config struct {
	FQDN          string        `yaml:"fqdn"`
	Layer         string        `yaml:"layer"`
	ModuleID      string        `yaml:"moduleID"`
	EscrowAccount adz.AccountID `yaml:"escrowAccount"`
}
