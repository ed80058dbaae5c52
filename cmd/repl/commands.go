package repl

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/XiaonuoGantan/rsedis/lib/db/util"
	"github.com/XiaonuoGantan/rsedis/lib/store"
	"github.com/kballard/go-shellquote"
)

// Engine is the store a Session runs commands against
type Engine interface {
	store.IStore
	WriteMetrics(w io.Writer)
}

// Session holds the state of one interactive client (the selected database)
type Session struct {
	store Engine
	db    uint32
	out   io.Writer
	clock util.Clock
}

// NewSession creates a session on database 0 that writes replies to out.
// A nil clock defaults to util.MsTime.
func NewSession(s Engine, out io.Writer, clock util.Clock) *Session {
	if clock == nil {
		clock = util.MsTime
	}
	return &Session{store: s, out: out, clock: clock}
}

// DB returns the index of the selected database
func (s *Session) DB() uint32 {
	return s.db
}

// Prompt returns the prompt for the selected database
func (s *Session) Prompt() string {
	if s.db == 0 {
		return "rsedis> "
	}
	return fmt.Sprintf("rsedis[%d]> ", s.db)
}

// Exec parses and runs one input line and writes the reply.
// It returns true if the line asked to end the session.
func (s *Session) Exec(line string) (quit bool) {
	args, err := shellquote.Split(line)
	if err != nil {
		s.errorReply(fmt.Errorf("ERR %v", err))
		return false
	}
	if len(args) == 0 {
		return false
	}

	name := strings.ToLower(args[0])
	if name == "quit" || name == "exit" {
		return true
	}

	cmd, ok := commands[name]
	if !ok {
		s.errorReply(fmt.Errorf("ERR unknown command '%s'", args[0]))
		return false
	}
	if (cmd.arity > 0 && len(args) != cmd.arity) || (cmd.arity < 0 && len(args) < -cmd.arity) {
		s.errorReply(fmt.Errorf("ERR wrong number of arguments for '%s' command", name))
		return false
	}

	if err := cmd.run(s, args[1:]); err != nil {
		s.errorReply(err)
	}
	return false
}

// --------------------------------------------------------------------------
// Replies
// --------------------------------------------------------------------------

func (s *Session) ok() {
	fmt.Fprintln(s.out, "OK")
}

func (s *Session) status(msg string) {
	fmt.Fprintln(s.out, msg)
}

func (s *Session) integer(n int64) {
	fmt.Fprintf(s.out, "(integer) %d\n", n)
}

func (s *Session) bulk(b []byte) {
	fmt.Fprintln(s.out, strconv.Quote(string(b)))
}

func (s *Session) nilReply() {
	fmt.Fprintln(s.out, "(nil)")
}

func (s *Session) boolean(b bool) {
	if b {
		s.integer(1)
	} else {
		s.integer(0)
	}
}

// errorReply writes err as an error reply, store errors are shown with their message only
func (s *Session) errorReply(err error) {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		fmt.Fprintf(s.out, "(error) ERR %s\n", storeErr.Msg)
		return
	}
	fmt.Fprintf(s.out, "(error) %s\n", err)
}

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

var (
	errSyntax     = errors.New("ERR syntax error")
	errNotInteger = errors.New("ERR value is not an integer or out of range")
)

func parseInt(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return n, nil
}

// parseExpire converts a relative or absolute expire argument to an absolute time in ms
func (s *Session) parseExpire(cmd, arg string, unitMs int64, absolute bool) (int64, error) {
	n, err := parseInt(arg)
	if err != nil {
		return 0, err
	}
	if n <= 0 && cmd == "set" {
		return 0, fmt.Errorf("ERR invalid expire time in '%s' command", cmd)
	}
	// |n * unitMs| <= 2^62, so adding the clock cannot overflow either
	if n > (1<<62)/unitMs || n < -(1<<62)/unitMs {
		return 0, fmt.Errorf("ERR invalid expire time in '%s' command", cmd)
	}
	at := n * unitMs
	if !absolute {
		at += s.clock()
	}
	return at, nil
}

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

type command struct {
	// arity is the exact number of words including the command name,
	// a negative arity is the minimum number of words
	arity int
	usage string
	run   func(s *Session, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ping":      {-1, "PING [message]", cmdPing},
		"help":      {1, "HELP", cmdHelp},
		"set":       {-3, "SET key value [EX seconds|PX milliseconds|EXAT timestamp|PXAT ms-timestamp]", cmdSet},
		"get":       {2, "GET key", cmdGet},
		"append":    {3, "APPEND key value", cmdAppend},
		"incr":      {2, "INCR key", cmdIncrBy(1, false)},
		"decr":      {2, "DECR key", cmdIncrBy(-1, false)},
		"incrby":    {3, "INCRBY key increment", cmdIncrBy(1, true)},
		"decrby":    {3, "DECRBY key decrement", cmdIncrBy(-1, true)},
		"getrange":  {4, "GETRANGE key start end", cmdGetRange},
		"setrange":  {4, "SETRANGE key offset value", cmdSetRange},
		"strlen":    {2, "STRLEN key", cmdStrLen},
		"del":       {-2, "DEL key [key ...]", cmdDel},
		"exists":    {-2, "EXISTS key [key ...]", cmdExists},
		"expire":    {3, "EXPIRE key seconds", cmdExpire(1000, false)},
		"pexpire":   {3, "PEXPIRE key milliseconds", cmdExpire(1, false)},
		"expireat":  {3, "EXPIREAT key timestamp", cmdExpire(1000, true)},
		"pexpireat": {3, "PEXPIREAT key ms-timestamp", cmdExpire(1, true)},
		"ttl":       {2, "TTL key", cmdTTL(1000)},
		"pttl":      {2, "PTTL key", cmdTTL(1)},
		"persist":   {2, "PERSIST key", cmdPersist},
		"select":    {2, "SELECT index", cmdSelect},
		"dbsize":    {1, "DBSIZE", cmdDBSize},
		"flushdb":   {1, "FLUSHDB", cmdFlushDB},
		"flushall":  {1, "FLUSHALL", cmdFlushAll},
		"info":      {1, "INFO", cmdInfo},
		"metrics":   {1, "METRICS", cmdMetrics},
	}
}

func cmdPing(s *Session, args []string) error {
	switch len(args) {
	case 0:
		s.status("PONG")
	case 1:
		s.bulk([]byte(args[0]))
	default:
		return fmt.Errorf("ERR wrong number of arguments for 'ping' command")
	}
	return nil
}

func cmdHelp(s *Session, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(s.out, "  QUIT")
	return nil
}

func cmdSet(s *Session, args []string) error {
	key, val := []byte(args[0]), []byte(args[1])
	if len(args) == 2 {
		if err := s.store.Set(s.db, key, val); err != nil {
			return err
		}
		s.ok()
		return nil
	}
	if len(args) != 4 {
		return errSyntax
	}

	var at int64
	var err error
	switch strings.ToLower(args[2]) {
	case "ex":
		at, err = s.parseExpire("set", args[3], 1000, false)
	case "px":
		at, err = s.parseExpire("set", args[3], 1, false)
	case "exat":
		at, err = s.parseExpire("set", args[3], 1000, true)
	case "pxat":
		at, err = s.parseExpire("set", args[3], 1, true)
	default:
		return errSyntax
	}
	if err != nil {
		return err
	}

	if err := s.store.SetPX(s.db, key, val, at); err != nil {
		return err
	}
	s.ok()
	return nil
}

func cmdGet(s *Session, args []string) error {
	val, ok, err := s.store.Get(s.db, []byte(args[0]))
	if err != nil {
		return err
	}
	if !ok {
		s.nilReply()
		return nil
	}
	s.bulk(val)
	return nil
}

func cmdAppend(s *Session, args []string) error {
	n, err := s.store.Append(s.db, []byte(args[0]), []byte(args[1]))
	if err != nil {
		return err
	}
	s.integer(int64(n))
	return nil
}

// cmdIncrBy returns the handler of INCR style commands, sign is applied to the parsed or implicit delta
func cmdIncrBy(sign int64, withArg bool) func(s *Session, args []string) error {
	return func(s *Session, args []string) error {
		delta := int64(1)
		if withArg {
			n, err := parseInt(args[1])
			if err != nil {
				return err
			}
			if sign < 0 && n == -1<<63 {
				return fmt.Errorf("ERR decrement would overflow")
			}
			delta = n
		}

		result, err := s.store.IncrBy(s.db, []byte(args[0]), sign*delta)
		if err != nil {
			return err
		}
		s.integer(result)
		return nil
	}
}

func cmdGetRange(s *Session, args []string) error {
	start, err := parseInt(args[1])
	if err != nil {
		return err
	}
	end, err := parseInt(args[2])
	if err != nil {
		return err
	}

	val, err := s.store.GetRange(s.db, []byte(args[0]), start, end)
	if err != nil {
		return err
	}
	s.bulk(val)
	return nil
}

func cmdSetRange(s *Session, args []string) error {
	offset, err := parseInt(args[1])
	if err != nil {
		return err
	}

	n, err := s.store.SetRange(s.db, []byte(args[0]), offset, []byte(args[2]))
	if err != nil {
		return err
	}
	s.integer(int64(n))
	return nil
}

func cmdStrLen(s *Session, args []string) error {
	n, err := s.store.StrLen(s.db, []byte(args[0]))
	if err != nil {
		return err
	}
	s.integer(int64(n))
	return nil
}

func cmdDel(s *Session, args []string) error {
	count := int64(0)
	for _, key := range args {
		deleted, err := s.store.Delete(s.db, []byte(key))
		if err != nil {
			return err
		}
		if deleted {
			count++
		}
	}
	s.integer(count)
	return nil
}

func cmdExists(s *Session, args []string) error {
	count := int64(0)
	for _, key := range args {
		ok, err := s.store.Exists(s.db, []byte(key))
		if err != nil {
			return err
		}
		if ok {
			count++
		}
	}
	s.integer(count)
	return nil
}

// cmdExpire returns the handler of EXPIRE style commands
func cmdExpire(unitMs int64, absolute bool) func(s *Session, args []string) error {
	return func(s *Session, args []string) error {
		at, err := s.parseExpire("expire", args[1], unitMs, absolute)
		if err != nil {
			return err
		}

		ok, err := s.store.PExpireAt(s.db, []byte(args[0]), at)
		if err != nil {
			return err
		}
		s.boolean(ok)
		return nil
	}
}

// cmdTTL returns the handler of TTL and PTTL, the special replies -1 and -2 are never scaled
func cmdTTL(unitMs int64) func(s *Session, args []string) error {
	return func(s *Session, args []string) error {
		ttl, err := s.store.PTTL(s.db, []byte(args[0]))
		if err != nil {
			return err
		}
		if ttl >= 0 {
			ttl = (ttl + unitMs/2) / unitMs
		}
		s.integer(ttl)
		return nil
	}
}

func cmdPersist(s *Session, args []string) error {
	ok, err := s.store.Persist(s.db, []byte(args[0]))
	if err != nil {
		return err
	}
	s.boolean(ok)
	return nil
}

func cmdSelect(s *Session, args []string) error {
	idx, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return errNotInteger
	}

	// DBSize validates the index without creating a keyspace
	if _, err := s.store.DBSize(uint32(idx)); err != nil {
		return err
	}
	s.db = uint32(idx)
	s.ok()
	return nil
}

func cmdDBSize(s *Session, _ []string) error {
	n, err := s.store.DBSize(s.db)
	if err != nil {
		return err
	}
	s.integer(int64(n))
	return nil
}

func cmdFlushDB(s *Session, _ []string) error {
	if err := s.store.FlushDB(s.db); err != nil {
		return err
	}
	s.ok()
	return nil
}

func cmdFlushAll(s *Session, _ []string) error {
	if err := s.store.FlushAll(); err != nil {
		return err
	}
	s.ok()
	return nil
}

func cmdInfo(s *Session, _ []string) error {
	info, err := s.store.GetDBInfo()
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, "# Memory")
	fmt.Fprintf(s.out, "used_memory_estimate:%d\n", info.SizeBytes)
	fmt.Fprintf(s.out, "value_size_p50:%d\n", info.ValueSizeP50)
	fmt.Fprintf(s.out, "value_size_p99:%d\n", info.ValueSizeP99)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "# Stats")
	fmt.Fprintf(s.out, "expired_keys:%d\n", info.ExpiredKeys)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "# Keyspace")
	for _, ks := range info.Keyspaces {
		fmt.Fprintf(s.out, "db%d:keys=%d,expires=%d,avg_ttl=%d\n", ks.Index, ks.Keys, ks.Expires, ks.AvgTTL)
	}
	return nil
}

func cmdMetrics(s *Session, _ []string) error {
	s.store.WriteMetrics(s.out)
	return nil
}
