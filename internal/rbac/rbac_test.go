package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "user read", role: RoleUser, action: ActionRead, allow: true},
		{name: "user write", role: RoleUser, action: ActionWrite, allow: true},
		{name: "user moderate", role: RoleUser, action: ActionModerate, allow: false},
		{name: "user admin", role: RoleUser, action: ActionAdmin, allow: false},
		{name: "admin moderate", role: RoleAdmin, action: ActionModerate, allow: true},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown role denied", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("admin should normalize to RoleAdmin")
	}
	if Normalize("") != RoleUser || Normalize("bogus") != RoleUser {
		t.Fatal("unknown roles should normalize to RoleUser")
	}
}
