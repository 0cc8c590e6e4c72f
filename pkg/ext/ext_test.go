package ext_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/celfx/pkg/evaluator"
	"github.com/sandrolain/celfx/pkg/ext"
	"github.com/sandrolain/celfx/pkg/functions"
	"github.com/sandrolain/celfx/pkg/types"
)

func newEvaluator(t *testing.T) *evaluator.Evaluator {
	t.Helper()
	ev := evaluator.New()
	var defs []*evaluator.FunctionDef
	for _, d := range ext.Catalog() {
		nd, err := d.NativeDefs()
		require.NoError(t, err, d.Name)
		defs = append(defs, nd...)
	}
	require.NoError(t, ev.Install(defs...))
	return ev
}

func eval(t *testing.T, ev *evaluator.Evaluator, expr string, data any) any {
	t.Helper()
	got, err := ev.Eval(context.Background(), expr, data)
	require.NoError(t, err, expr)
	return got
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// ── catalog ───────────────────────────────────────────────────────────────

func TestCatalog_Valid(t *testing.T) {
	t.Parallel()

	seen := map[string]string{}
	for _, d := range ext.Catalog() {
		require.NoError(t, d.Validate(), d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
		assert.NotEmpty(t, d.Example, d.Name)
		for _, n := range d.Names() {
			prev, dup := seen[n]
			assert.False(t, dup, "%s declared by %s and %s", n, prev, d.Category)
			seen[n] = string(d.Category)
		}
	}
}

func TestCatalog_EveryCategoryPopulated(t *testing.T) {
	t.Parallel()

	counts := map[functions.Category]int{}
	for _, d := range ext.Catalog() {
		counts[d.Category]++
	}
	for _, c := range functions.Categories() {
		assert.Positive(t, counts[c], "category %s is empty", c)
	}
}

func TestStandard_MatchesHost(t *testing.T) {
	t.Parallel()

	var names []string
	for _, d := range ext.Standard() {
		assert.True(t, d.Standard(), d.Name)
		assert.True(t, evaluator.IsStandardFunction(d.Name), d.Name)
		defs, err := d.NativeDefs()
		require.NoError(t, err)
		assert.Empty(t, defs, d.Name)
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, evaluator.StandardFunctions, names)
}

func TestCatalog_NoStandardNameShadowed(t *testing.T) {
	t.Parallel()

	for _, d := range ext.Catalog() {
		if d.Standard() {
			continue
		}
		for _, n := range d.Names() {
			assert.False(t, evaluator.IsStandardFunction(n), "%s shadows a host built-in", n)
		}
	}
}

// ── evaluation through the host ───────────────────────────────────────────

func TestCategories_Eval(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)

	tests := []struct {
		expr string
		want string // JSON
	}{
		// string
		{`upper('abc')`, `"ABC"`},
		{`snake_case('helloWorld')`, `"hello_world"`},
		{`camel_case('hello_world')`, `"helloWorld"`},
		{`pad_left('5', 3, '0')`, `"005"`},
		{`substr('hello', 1, 3)`, `"ell"`},
		{`concat('a', 'b', 'c')`, `"abc"`},
		{`index_of('hello', 'l')`, `2`},
		{`template('Hi {{name}}', {"name": "Ann"})`, `"Hi Ann"`},

		// math
		{`round(3.14159, 2)`, `3.14`},
		{`clamp(15, 0, 10)`, `10`},
		{`median([3, 1, 4, 2])`, `2.5`},
		{`percentile([1, 2, 3, 4, 5], 50)`, `3`},
		{`variance([1, 2, 3, 4])`, `1.25`},
		{`pow(2, 10)`, `1024`},

		// array
		{`chunk([1, 2, 3], 2)`, `[[1, 2], [3]]`},
		{`flatten([1, [2, [3]]], 1)`, `[1, 2, [3]]`},
		{`unique([1, 2, 1])`, `[1, 2]`},
		{`difference([1, 2, 3], [2])`, `[1, 3]`},
		{`range(0, 10, 3)`, `[0, 3, 6, 9]`},
		{`window([1, 2, 3, 4], 2)`, `[[1, 2], [2, 3], [3, 4]]`},
		{`rotate([1, 2, 3], 1)`, `[2, 3, 1]`},

		// object
		{`keys({"b": 1, "a": 2})`, `["a", "b"]`},
		{`pick({"a": 1, "b": 2}, ["a"])`, `{"a": 1}`},
		{`omit({"a": 1, "b": 2}, ["a"])`, `{"b": 2}`},
		{`deep_merge({"a": {"x": 1}}, {"a": {"y": 2}})`, `{"a": {"x": 1, "y": 2}}`},
		{`defaults({"a": 1}, {"a": 0, "b": 2})`, `{"a": 1, "b": 2}`},
		{`get({"a": {"b": [5]}}, "a.b.0")`, `5`},
		{`get({"a": 1}, "x.y", "none")`, `"none"`},
		{`has_path({"a": {"b": 1}}, "a.c")`, `false`},
		{`set_path({}, "a.b", 1)`, `{"a": {"b": 1}}`},
		{`flatten_keys({"a": {"b": 1, "c": {"d": 2}}})`, `{"a.b": 1, "a.c.d": 2}`},
		{`unflatten_keys({"a.b": 1, "a.c": 2})`, `{"a": {"b": 1, "c": 2}}`},
		{`invert({"a": "x"})`, `{"x": "a"}`},
		{`rename_keys({"a": 1}, {"a": "b"})`, `{"b": 1}`},
		{`deep_equals({"a": [1, {"b": 2}]}, {"a": [1, {"b": 2}]})`, `true`},
		{`items({"a": 1})`, `[["a", 1]]`},
		{`from_items([["a", 1], ["b", 2]])`, `{"a": 1, "b": 2}`},

		// type
		{`type_of([1])`, `"array"`},
		{`type_of(null)`, `"null"`},
		{`to_number("42")`, `42`},
		{`to_boolean("false")`, `false`},
		{`to_string([1, 2])`, `"[1,2]"`},
		{`is_empty({})`, `true`},
		{`is_blank("  ")`, `true`},

		// datetime (epoch seconds, UTC)
		{`date_add(0, 1, "day")`, `86400`},
		{`date_diff(86400, 0, "hours")`, `24`},
		{`date_diff(date_add(0, 2, "month"), 0, "month")`, `2`},
		{`format_date(0, "2006-01-02")`, `"1970-01-01"`},
		{`parse_date("1970-01-02")`, `86400`},
		{`parse_date("not a date")`, `null`},
		{`start_of(90000, "day")`, `86400`},
		{`end_of(0, "day")`, `86399`},
		{`from_epoch(0)`, `"1970-01-01T00:00:00Z"`},
		{`to_epoch_ms("1970-01-01T00:00:01Z")`, `1000`},
		{`quarter(date_add(0, 4, "month"))`, `2`},
		{`is_weekend(259200)`, `true`},
		{`is_before("2024-01-01", "2024-06-01")`, `true`},
		{`is_between("2024-03-01", "2024-01-01", "2024-12-31")`, `true`},
		{`timezone_convert("2024-01-15T10:00:00", "UTC", "UTC")`, `"2024-01-15T10:00:00"`},

		// duration
		{`parse_duration("1h30m")`, `5400`},
		{`parse_duration("2 days 4h")`, `187200`},
		{`parse_duration("PT1H30M")`, `5400`},
		{`parse_duration("soon")`, `null`},
		{`format_duration(5400)`, `"1h30m"`},
		{`format_duration(0)`, `"0s"`},
		{`parse_duration(iso_duration(5400))`, `5400`},
		{`duration_hours(90000)`, `1`},
		{`duration_minutes(5400)`, `30`},

		// hash
		{`md5('abc')`, `"900150983cd24fb0d6963f7d28e17f72"`},
		{`sha256('abc')`, `"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"`},
		{`hash('abc', 'SHA256') == sha256('abc')`, `true`},
		{`hmac_sha256('The quick brown fox jumps over the lazy dog', 'key')`, `"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"`},
		{`crc32('hello')`, `907060870`},
		{`xxhash64('')`, `"ef46db3751d8e999"`},
		{`size(blake2b_256('x'))`, `64`},

		// encoding
		{`base64_encode('hi')`, `"aGk="`},
		{`base64_decode(base64_encode('héllo'))`, `"héllo"`},
		{`hex_decode('6869')`, `"hi"`},
		{`url_encode('a b&c')`, `"a+b%26c"`},
		{`html_escape('<b>')`, `"&lt;b&gt;"`},
		{`yaml_decode('a: 1\nb: [x, y]')`, `{"a": 1, "b": ["x", "y"]}`},
		{`yaml_encode({"a": 1})`, `"a: 1\n"`},

		// ids
		{`size(uuid())`, `36`},
		{`size(ulid())`, `26`},
		{`size(nanoid(10))`, `10`},
		{`ulid_timestamp('01ARZ3NDEKTSV4RRFFQ69G5FAV')`, `1469918176385`},

		// fuzzy
		{`levenshtein('kitten', 'sitting')`, `3`},
		{`damerau_levenshtein('ab', 'ba')`, `1`},
		{`jaro('abc', 'abc')`, `1`},
		{`sorensen_dice('night', 'nacht')`, `0.25`},

		// semver
		{`semver_compare('1.2.3', '1.10.0')`, `-1`},
		{`semver_major('v2.1.0')`, `2`},
		{`semver_satisfies('1.4.0', '^1.2.0')`, `true`},
		{`semver_satisfies('2.0.0', '^1.2.0')`, `false`},
		{`semver_satisfies('1.2.9', '~1.2.3')`, `true`},
		{`semver_satisfies('1.3.0', '~1.2.3')`, `false`},
		{`semver_is_valid('1.2')`, `false`},
		{`semver_parse('1.2.3-beta+build')`, `{"major": 1, "minor": 2, "patch": 3, "pre": "beta", "build": "build"}`},

		// format
		{`to_csv(['a', 1, null])`, `"a,1,"`},
		{`to_tsv(['a', 'b'])`, `"a\tb"`},
		{`to_csv_table([{"a": 1, "b": 2}])`, `"a,b\n1,2"`},
		{`parse_csv("a,b\n1,2")`, `[{"a": "1", "b": "2"}]`},
		{`format_bytes(1500000)`, `"1.5 MB"`},
		{`format_number(1234567.891, 2)`, `"1,234,567.89"`},
		{`ordinal(22)`, `"22nd"`},

		// validation
		{`is_email('a@b.io')`, `true`},
		{`is_ipv4('10.0.0.1')`, `true`},
		{`is_ipv6('10.0.0.1')`, `false`},
		{`is_uuid(uuid())`, `true`},
		{`luhn_check('79927398713')`, `true`},
		{`is_credit_card('4111 1111 1111 1111')`, `true`},
		{`is_hex('0xFF')`, `true`},
		{`is_json('{"a": 1}')`, `true`},
		{`json_schema_valid({"a": 1}, {"type": "object"})`, `true`},
		{`json_schema_valid(1, '{"type": "string"}')`, `false`},
		{`size(json_schema_errors(1, {"type": "string"}))`, `1`},

		// regex
		{`regex_match('abc123', '[0-9]+')`, `true`},
		{`regex_find('abc', '[0-9]+')`, `null`},
		{`regex_find_all('a1b22', '[0-9]+')`, `["1", "22"]`},
		{`regex_groups('k=v', '(\\w+)=(\\w+)')`, `["k", "v"]`},
		{`regex_replace('a1b2', '[0-9]', '#')`, `"a#b#"`},
		{`regex_split('a, b;c', '[,;]\\s*')`, `["a", "b", "c"]`},
		{`regex_escape('a.b')`, `"a\\.b"`},

		// network
		{`ip_to_int('10.0.0.1')`, `167772161`},
		{`int_to_ip(167772161)`, `"10.0.0.1"`},
		{`cidr_contains('10.0.0.0/8', '10.1.2.3')`, `true`},
		{`cidr_network('10.1.2.3/8')`, `"10.0.0.0"`},
		{`cidr_broadcast('192.168.1.0/24')`, `"192.168.1.255"`},
		{`cidr_prefix('10.0.0.0/8')`, `8`},
		{`is_private_ip('192.168.1.1')`, `true`},
		{`ip_to_int('nope')`, `null`},

		// utility
		{`default(null, 0)`, `0`},
		{`coalesce(null, 'x', 'y')`, `"x"`},
		{`json_pointer({"a": [10, 20]}, "/a/1")`, `20`},
		{`json_pointer({"a": 1}, "/b")`, `null`},
		{`json_encode({"a": [1]})`, `"{\"a\":[1]}"`},
		{`json_decode('[1, 2]')`, `[1, 2]`},
		{`get_env('CELFX_TEST_SURELY_UNSET', 'd')`, `"d"`},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := eval(t, ev, tt.expr, nil)
			assert.JSONEq(t, tt.want, jsonOf(t, got))
		})
	}
}

func TestFuzzy_Similarity(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	assert.InDelta(t, 0.9444, eval(t, ev, `jaro('martha', 'marhta')`, nil), 1e-4)
	assert.InDelta(t, 0.9611, eval(t, ev, `jaro_winkler('martha', 'marhta')`, nil), 1e-4)
	assert.InDelta(t, 2.0/3.0, eval(t, ev, `normalized_levenshtein('abc', 'abd')`, nil), 1e-9)

	// optimal string alignment never edits a substring twice
	assert.Equal(t, 3.0, eval(t, ev, `damerau_levenshtein('ca', 'abc')`, nil))
	assert.Equal(t, 1.0, eval(t, ev, `jaro('', '')`, nil))
	assert.Equal(t, 0.0, eval(t, ev, `jaro('abc', '')`, nil))
	assert.Equal(t, 1.0, eval(t, ev, `sorensen_dice('a', 'a')`, nil))
	assert.Equal(t, 0.0, eval(t, ev, `sorensen_dice('a', 'ab')`, nil))
}

func TestNanoID(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	id, ok := eval(t, ev, `nanoid()`, nil).(string)
	require.True(t, ok)
	assert.Regexp(t, `^[A-Za-z0-9_-]{21}$`, id)
	assert.NotEqual(t, id, eval(t, ev, `nanoid()`, nil))

	_, err := ev.Eval(context.Background(), `nanoid(0)`, nil)
	require.ErrorIs(t, err, types.ErrEvaluation)
}

func TestJWT_Decode(t *testing.T) {
	t.Parallel()

	enc := base64.RawURLEncoding
	token := enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"42","admin":true}`)) + ".sig"

	ev := newEvaluator(t)
	assert.Equal(t, "42", eval(t, ev, `jwt_decode(this).sub`, token))
	assert.Equal(t, "HS256", eval(t, ev, `jwt_header(this).alg`, token))
	assert.Equal(t, true, eval(t, ev, `is_jwt(this)`, token))
	assert.Nil(t, eval(t, ev, `jwt_decode('a.b')`, nil))
}

func TestLeafErrors(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)

	tests := []struct {
		expr string
		code types.ErrorCode
	}{
		{`sqrt(-1)`, types.ErrCodeEvaluation},
		{`mod(1, 0)`, types.ErrCodeEvaluation},
		{`hash('x', 'sha42')`, types.ErrCodeEvaluation},
		{`regex_match('x', '(')`, types.ErrCodeEvaluation},
		{`semver_major('one')`, types.ErrCodeEvaluation},
		{`date_add(0, 1, 'fortnight')`, types.ErrCodeEvaluation},
		{`to_number('abc')`, types.ErrCodeTypeMismatch},
		{`upper(1)`, types.ErrCodeTypeMismatch},
		{`keys([1])`, types.ErrCodeTypeMismatch},
		{`upper('a', 'b')`, types.ErrCodeArityMismatch},
		{`pi(1)`, types.ErrCodeArityMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), tt.expr, nil)
			require.Error(t, err)
			assert.Nil(t, got)
			te, ok := types.AsError(err)
			require.True(t, ok, "%T: %v", err, err)
			assert.Equal(t, tt.code, te.Code, err.Error())
			assert.NotEmpty(t, te.Function)
		})
	}
}

func TestLeaf_ElementData(t *testing.T) {
	t.Parallel()

	ev := newEvaluator(t)
	data := map[string]any{
		"users": []any{
			map[string]any{"name": "ann", "email": "ann@example.com"},
			map[string]any{"name": "bob", "email": "bob@"},
		},
	}

	got := eval(t, ev, `filter_expr('is_email(email)', users)`, data)
	assert.JSONEq(t, `[{"name": "ann", "email": "ann@example.com"}]`, jsonOf(t, got))

	got = eval(t, ev, `map_expr('upper(name)', users)`, data)
	assert.Equal(t, []any{"ANN", "BOB"}, got)
}
