package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered script of story interactions and expectations.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scripted action or assertion.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs the Lua script at path and returns the Scenario
// it builds.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := newState()
	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	scenario, err := runChunk(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

// LoadScenario runs Lua source held in memory.
func LoadScenario(name, source string) (*Scenario, error) {
	state := newState()
	if err := lua.LoadString(state, source); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	scenario, err := runChunk(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = name
	}
	return scenario, nil
}

func newState() *lua.State {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerScenarioType(state)
	registerScenarioConstructor(state)
	return state
}

func runChunk(state *lua.State) (*Scenario, error) {
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}
	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	return scenario, nil
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name})
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "records", Function: tableStep("records")},
	{Name: "sections", Function: tableStep("sections")},
	{Name: "dataset", Function: scenarioDataset},
	{Name: "resize", Function: scenarioResize},
	{Name: "relayout", Function: scenarioRelayout},
	{Name: "wait", Function: scenarioWait},
	{Name: "scroll", Function: tableStep("scroll")},
	{Name: "explore_visible", Function: tableStep("explore_visible")},
	{Name: "wheel", Function: numberStep("wheel", "delta")},
	{Name: "touch_start", Function: numberStep("touch_start", "y")},
	{Name: "touch_end", Function: numberStep("touch_end", "y")},
	{Name: "key", Function: scenarioKey},
	{Name: "exit", Function: emptyStep("exit")},
	{Name: "navigate", Function: scenarioNavigate},
	{Name: "pointer", Function: scenarioPointer},
	{Name: "pointer_record", Function: numberStep("pointer_record", "seq")},
	{Name: "leave", Function: emptyStep("leave")},
	{Name: "click", Function: scenarioClick},
	{Name: "click_record", Function: numberStep("click_record", "seq")},
	{Name: "unpin", Function: emptyStep("unpin")},
	{Name: "expect_mode", Function: stringStep("expect_mode", "mode")},
	{Name: "expect_section", Function: stringStep("expect_section", "section")},
	{Name: "expect_relayouts", Function: numberStep("expect_relayouts", "count")},
	{Name: "expect_hover", Function: scenarioExpectHover},
	{Name: "expect_pinned", Function: scenarioExpectPinned},
}

func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		appendStep(scenario, kind, map[string]any{"items": tableToGo(state, 2)})
		return 0
	}
}

func numberStep(kind, field string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		value := lua.CheckNumber(state, 2)
		appendStep(scenario, kind, map[string]any{field: normalizeNumber(value)})
		return 0
	}
}

func stringStep(kind, field string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		value := lua.CheckString(state, 2)
		appendStep(scenario, kind, map[string]any{field: value})
		return 0
	}
}

func emptyStep(kind string) lua.Function {
	return func(state *lua.State) int {
		appendStep(checkScenario(state), kind, nil)
		return 0
	}
}

func scenarioDataset(state *lua.State) int {
	scenario := checkScenario(state)
	dir := lua.CheckString(state, 2)
	appendStep(scenario, "dataset", map[string]any{"dir": dir})
	return 0
}

func scenarioResize(state *lua.State) int {
	scenario := checkScenario(state)
	width := lua.CheckNumber(state, 2)
	height := lua.CheckNumber(state, 3)
	appendStep(scenario, "resize", map[string]any{"width": normalizeNumber(width), "height": normalizeNumber(height)})
	return 0
}

func scenarioRelayout(state *lua.State) int {
	scenario := checkScenario(state)
	width := lua.CheckNumber(state, 2)
	height := lua.CheckNumber(state, 3)
	appendStep(scenario, "relayout", map[string]any{"width": normalizeNumber(width), "height": normalizeNumber(height)})
	return 0
}

// wait takes milliseconds.
func scenarioWait(state *lua.State) int {
	scenario := checkScenario(state)
	ms := lua.CheckNumber(state, 2)
	appendStep(scenario, "wait", map[string]any{"ms": normalizeNumber(ms)})
	return 0
}

func scenarioKey(state *lua.State) int {
	scenario := checkScenario(state)
	name := lua.OptString(state, 2, "Escape")
	appendStep(scenario, "key", map[string]any{"key": name})
	return 0
}

func scenarioNavigate(state *lua.State) int {
	scenario := checkScenario(state)
	section := lua.CheckString(state, 2)
	opts := optionalTable(state, 3)
	data := map[string]any{"section": section}
	for key, value := range opts {
		data[key] = value
	}
	appendStep(scenario, "navigate", data)
	return 0
}

func scenarioPointer(state *lua.State) int {
	scenario := checkScenario(state)
	x := lua.CheckNumber(state, 2)
	y := lua.CheckNumber(state, 3)
	appendStep(scenario, "pointer", map[string]any{"x": normalizeNumber(x), "y": normalizeNumber(y)})
	return 0
}

func scenarioClick(state *lua.State) int {
	scenario := checkScenario(state)
	x := lua.CheckNumber(state, 2)
	y := lua.CheckNumber(state, 3)
	inside := state.ToBoolean(4)
	appendStep(scenario, "click", map[string]any{"x": normalizeNumber(x), "y": normalizeNumber(y), "inside_panel": inside})
	return 0
}

// expect_hover(seq) asserts the panel shows seq; expect_hover(false)
// asserts it is hidden.
func scenarioExpectHover(state *lua.State) int {
	scenario := checkScenario(state)
	data := map[string]any{}
	if state.TypeOf(2) == lua.TypeBoolean {
		data["visible"] = state.ToBoolean(2)
	} else {
		data["visible"] = true
		data["seq"] = normalizeNumber(lua.CheckNumber(state, 2))
	}
	appendStep(scenario, "expect_hover", data)
	return 0
}

func scenarioExpectPinned(state *lua.State) int {
	scenario := checkScenario(state)
	pinned := true
	if !state.IsNoneOrNil(2) {
		pinned = state.ToBoolean(2)
	}
	appendStep(scenario, "expect_pinned", map[string]any{"pinned": pinned})
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	scenario, ok := ud.(*Scenario)
	if !ok {
		lua.Errorf(state, "expected scenario")
		return nil
	}
	return scenario
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo converts a Lua sequence to []any and anything else to a map.
func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
