// Package report derives attendance statistics from a snapshot of the ledger,
// inferring absences for assigned students who have no record for a session
// that has already ended. Nothing in this package writes to the ledger.
package report

import (
	"math"
	"time"

	"weekendschool/internal/attendance"
)

// StatusPending marks an assigned student with no record for a session that
// has not ended yet. Pending entries are excluded from every count but Pending.
const StatusPending attendance.Status = "PENDING"

// Entry is one (student, session, date) cell of a report.
type Entry struct {
	Date        attendance.Date   `json:"date"`
	SessionID   string            `json:"session_id"`
	ClassID     string            `json:"class_id"`
	ClassName   string            `json:"class_name"`
	Day         attendance.Day    `json:"day"`
	StudentID   string            `json:"student_id"`
	StudentName string            `json:"student_name"`
	Status      attendance.Status `json:"status"`
	Assigned    bool              `json:"assigned"`
	Inferred    bool              `json:"inferred"`
	RecordID    string            `json:"record_id,omitempty"`
}

// Snapshot is the input of the sweep. From and To are inclusive.
type Snapshot struct {
	Sessions []attendance.Session
	Students []attendance.Student
	Records  []attendance.Record
	From     attendance.Date
	To       attendance.Date
	Now      time.Time
	Location *time.Location
}

// Sweep expands a snapshot into entries: one per assigned student for every
// date the session is held in range, plus one per record left by a student
// not assigned to that session.
func Sweep(s Snapshot) []Entry {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	byKey := make(map[attendance.Key]attendance.Record, len(s.Records))
	bySlot := make(map[slot][]attendance.Record)
	for _, r := range s.Records {
		byKey[r.Key()] = r
		bySlot[slot{r.SessionID, r.Date}] = append(bySlot[slot{r.SessionID, r.Date}], r)
	}
	names := make(map[string]string, len(s.Students))
	for _, st := range s.Students {
		names[st.ID] = st.Name
	}

	var out []Entry
	for _, sess := range s.Sessions {
		var assigned []attendance.Student
		for _, st := range s.Students {
			if !st.Deleted && st.AssignedFor(sess.Day) == sess.ID {
				assigned = append(assigned, st)
			}
		}
		isAssigned := make(map[string]bool, len(assigned))
		for _, st := range assigned {
			isAssigned[st.ID] = true
		}

		for d := s.From; !s.To.Before(d); d = d.AddDays(1) {
			if !sess.HeldOn(d) {
				continue
			}
			ended := !s.Now.Before(sess.EndsAt(d, loc))
			for _, st := range assigned {
				e := newEntry(sess, d, st.ID, st.Name)
				e.Assigned = true
				if r, ok := byKey[attendance.Key{StudentID: st.ID, SessionID: sess.ID, Date: d}]; ok {
					e.Status = r.Status
					e.RecordID = r.ID
				} else if ended {
					e.Status = attendance.StatusAbsent
					e.Inferred = true
				} else {
					e.Status = StatusPending
				}
				out = append(out, e)
			}
			for _, r := range bySlot[slot{sess.ID, d}] {
				if isAssigned[r.StudentID] {
					continue
				}
				e := newEntry(sess, d, r.StudentID, names[r.StudentID])
				e.Status = r.Status
				e.RecordID = r.ID
				out = append(out, e)
			}
		}
	}
	return out
}

type slot struct {
	sessionID string
	date      attendance.Date
}

func newEntry(s attendance.Session, d attendance.Date, studentID, name string) Entry {
	return Entry{
		Date:        d,
		SessionID:   s.ID,
		ClassID:     s.ClassID,
		ClassName:   s.ClassName,
		Day:         s.Day,
		StudentID:   studentID,
		StudentName: name,
	}
}

// Counts aggregates entries. Expected counts assigned entries that are no
// longer pending; Absent includes Inferred.
type Counts struct {
	Expected     int `json:"expected"`
	Present      int `json:"present"`
	Absent       int `json:"absent"`
	WrongSession int `json:"wrong_session"`
	Inferred     int `json:"inferred_absent"`
	Pending      int `json:"pending"`
	Rate         int `json:"rate"`
}

// Add folds e into c and refreshes Rate.
func (c *Counts) Add(e Entry) {
	switch e.Status {
	case StatusPending:
		c.Pending++
		return
	case attendance.StatusPresent:
		c.Present++
	case attendance.StatusAbsent:
		c.Absent++
		if e.Inferred {
			c.Inferred++
		}
	case attendance.StatusWrongSession:
		c.WrongSession++
	}
	if e.Assigned {
		c.Expected++
	}
	c.Rate = Rate(c.Present, c.Absent)
}

// Rate is round(present / (present + absent) * 100), or 0 with no data.
func Rate(present, absent int) int {
	if present+absent == 0 {
		return 0
	}
	return int(math.Round(float64(present) * 100 / float64(present+absent)))
}

// Total counts all entries.
func Total(entries []Entry) Counts {
	var c Counts
	for _, e := range entries {
		c.Add(e)
	}
	return c
}

// Summary is the counts for one group.
type Summary struct {
	ID   string          `json:"id"`
	Name string          `json:"name,omitempty"`
	Day  attendance.Day  `json:"day,omitempty"`
	Date attendance.Date `json:"date,omitempty"`
	Counts
}

func group(entries []Entry, key func(Entry) Summary) []Summary {
	var (
		out   []Summary
		index = map[Summary]int{}
	)
	for _, e := range entries {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, k)
		}
		out[i].Add(e)
	}
	return out
}

// ByClass groups entries per class.
func ByClass(entries []Entry) []Summary {
	return group(entries, func(e Entry) Summary { return Summary{ID: e.ClassID, Name: e.ClassName} })
}

// BySession groups entries per session.
func BySession(entries []Entry) []Summary {
	return group(entries, func(e Entry) Summary { return Summary{ID: e.SessionID, Name: e.ClassName, Day: e.Day} })
}

// BySessionDate groups entries per session occurrence.
func BySessionDate(entries []Entry) []Summary {
	return group(entries, func(e Entry) Summary {
		return Summary{ID: e.SessionID, Name: e.ClassName, Day: e.Day, Date: e.Date}
	})
}

// ByStudent groups entries per student.
func ByStudent(entries []Entry) []Summary {
	return group(entries, func(e Entry) Summary { return Summary{ID: e.StudentID, Name: e.StudentName} })
}
