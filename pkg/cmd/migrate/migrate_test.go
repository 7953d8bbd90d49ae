package migrate

import "testing"

func TestPrepareURLForDB(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "postgresql://u:p@db/karting", "postgresql://u:p@db/karting?sslmode=disable"},
		{"with params", "postgres://db/karting?x=1", "postgres://db/karting?x=1&sslmode=disable"},
		{"sslmode given", "postgres://db/karting?sslmode=require", "postgres://db/karting?sslmode=require"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prepareURLForDB(tt.url); got != tt.want {
				t.Errorf("prepareURLForDB() = %v, want %v", got, tt.want)
			}
		})
	}
}
