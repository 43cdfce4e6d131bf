// Command token issues access tokens for local development and smoke tests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"weekendschool/internal/auth"
	"weekendschool/internal/config"
	"weekendschool/internal/policy"
	"weekendschool/internal/qr"
)

func main() {
	var (
		user    = flag.String("user", "", "user id (token subject)")
		role    = flag.String("role", string(policy.RoleTeacher), "ADMIN, TEACHER or STUDENT")
		teacher = flag.String("teacher-role", string(policy.TeacherHead), "HEAD or ADDITIONAL, teachers only")
		course  = flag.String("course", "", "course id")
		student = flag.String("student", "", "student id, students only")
		payload = flag.String("qr", "", "print the QR payload for this student id instead of a token")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	if *payload != "" {
		codec, err := qr.NewCodec(cfg.QRSigningKey, cfg.JWTIssuer)
		if err != nil {
			fail(err)
		}
		p, err := codec.Encode(*payload)
		if err != nil {
			fail(err)
		}
		fmt.Println(p)
		return
	}

	p := policy.Principal{
		UserID:    *user,
		Role:      policy.Role(*role),
		CourseID:  *course,
		StudentID: *student,
	}
	if p.Role == policy.RoleTeacher {
		p.TeacherRole = policy.TeacherRole(*teacher)
	}
	if !p.Authenticated() {
		fail(fmt.Errorf("incomplete principal %+v", p))
	}
	tok, err := auth.Issue(p, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
	if err != nil {
		fail(err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(tok)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "token:", err)
	os.Exit(1)
}
