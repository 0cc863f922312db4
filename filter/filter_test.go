package filter

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsekura/vulkan-bindings/parser"
	"github.com/bsekura/vulkan-bindings/resolver"
)

func resolveFixture(t *testing.T) (*parser.Registry, *resolver.Resolution) {
	t.Helper()
	f, err := os.Open("../testdata/minimal_registry.xml")
	require.NoError(t, err)
	defer f.Close()

	reg, err := parser.Parse(f, parser.DefaultOptions())
	require.NoError(t, err)
	res, err := resolver.Resolve(reg)
	require.NoError(t, err)
	return reg, res
}

func commandNames(r *Result) []string {
	names := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		names[i] = c.Name
	}
	return names
}

func constantNames(r *Result) []string {
	names := make([]string, len(r.Constant))
	for i, c := range r.Constant {
		names[i] = c.Name
	}
	return names
}

func TestDefaultConfigExcludesPlatformExtensions(t *testing.T) {
	reg, res := resolveFixture(t)
	out, err := Apply(reg, res, DefaultConfig())
	require.NoError(t, err)

	var features []string
	for _, fg := range out.Features {
		features = append(features, fg.Name)
	}
	assert.Equal(t, []string{"VK_VERSION_1_0", "VK_KHR_rect_info2"}, features)

	assert.False(t, out.HasType("VkXlibSurfaceCreateInfoKHR"))
	assert.NotContains(t, commandNames(out), "vkCreateXlibSurfaceKHR")

	// Shared dependencies of the excluded extension stay with the core.
	assert.True(t, out.HasType("VkExtent2D"))
	assert.True(t, out.HasType("VkRect2D"))
	assert.Contains(t, commandNames(out), "vkGetRectInfo")
	// An alias survives through its target's feature membership.
	assert.Contains(t, commandNames(out), "vkGetRectInfo2KHR")
}

func TestExcludedFeatureTakesItsEnumValues(t *testing.T) {
	reg, res := resolveFixture(t)
	out, err := Apply(reg, res, DefaultConfig())
	require.NoError(t, err)

	var results []string
	for _, v := range out.Enums["VkResult"] {
		results = append(results, v.Name)
	}
	assert.Contains(t, results, "VK_SUCCESS")
	assert.NotContains(t, results, "VK_ERROR_XLIB_LOST_KHR")

	consts := constantNames(out)
	assert.Contains(t, consts, "VK_MAX_EXTENSION_NAME_SIZE")
	assert.Contains(t, consts, "VK_KHR_RECT_INFO2_SPEC_VERSION")
	assert.NotContains(t, consts, "VK_KHR_XLIB_SURFACE_SPEC_VERSION")
}

func TestSupportedPlatformIsKept(t *testing.T) {
	reg, res := resolveFixture(t)
	out, err := Apply(reg, res, Config{Supported: []string{"xlib"}})
	require.NoError(t, err)

	assert.True(t, out.HasType("VkXlibSurfaceCreateInfoKHR"))
	assert.Contains(t, commandNames(out), "vkCreateXlibSurfaceKHR")

	var results []string
	for _, v := range out.Enums["VkResult"] {
		results = append(results, v.Name)
	}
	assert.Contains(t, results, "VK_ERROR_XLIB_LOST_KHR")
}

func TestDanglingReference(t *testing.T) {
	// A core command whose parameter type is introduced only by a
	// platform-gated extension: excluding the extension must fail loudly
	// instead of emitting a command that references a missing type.
	doc := `<registry>
		<platforms><platform name="xlib" protect="VK_USE_PLATFORM_XLIB_KHR"/></platforms>
		<types>
			<type category="struct" name="VkGadgetInfo">
				<member><type>uint32_t</type> <name>flags</name></member>
			</type>
		</types>
		<commands>
			<command>
				<proto><type>void</type> <name>vkUseGadget</name></proto>
				<param>const <type>VkGadgetInfo</type>* <name>pInfo</name></param>
			</command>
		</commands>
		<feature api="vulkan" name="VK_VERSION_1_0" number="1.0">
			<require><command name="vkUseGadget"/></require>
		</feature>
		<extensions>
			<extension name="VK_EXT_gadget" number="7" platform="xlib" supported="vulkan">
				<require><type name="VkGadgetInfo"/></require>
			</extension>
		</extensions>
	</registry>`

	reg, err := parser.Parse(strings.NewReader(doc), parser.DefaultOptions())
	require.NoError(t, err)
	res, err := resolver.Resolve(reg)
	require.NoError(t, err)

	_, err = Apply(reg, res, DefaultConfig())
	require.Error(t, err)
	var de *DanglingReferenceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VkGadgetInfo", de.Name)
	assert.Equal(t, "vkUseGadget", de.Referrer)

	// The same registry is consistent once the platform is supported.
	_, err = Apply(reg, res, Config{Supported: []string{"xlib"}})
	require.NoError(t, err)
}

func TestFuncPointerReturnDangling(t *testing.T) {
	// A kept funcpointer whose return type is introduced only by an
	// excluded extension: the reference check must catch the return the
	// same way it catches members.
	doc := `<registry>
		<platforms><platform name="xlib" protect="VK_USE_PLATFORM_XLIB_KHR"/></platforms>
		<types>
			<type category="struct" name="VkGated">
				<member><type>uint32_t</type> <name>flags</name></member>
			</type>
			<type category="funcpointer">typedef VkGated* (VKAPI_PTR *<name>PFN_vkAllocGated</name>)(void);</type>
		</types>
		<extensions>
			<extension name="VK_EXT_gated" number="3" platform="xlib" supported="vulkan">
				<require><type name="VkGated"/></require>
			</extension>
		</extensions>
	</registry>`

	reg, err := parser.Parse(strings.NewReader(doc), parser.DefaultOptions())
	require.NoError(t, err)
	res, err := resolver.Resolve(reg)
	require.NoError(t, err)

	_, err = Apply(reg, res, DefaultConfig())
	require.Error(t, err)
	var de *DanglingReferenceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VkGated", de.Name)
	assert.Equal(t, "PFN_vkAllocGated", de.Referrer)

	out, err := Apply(reg, res, Config{Supported: []string{"xlib"}})
	require.NoError(t, err)
	assert.True(t, out.HasType("VkGated"))
}

func TestPruneDropsUnreferencedTypes(t *testing.T) {
	reg, res := resolveFixture(t)
	out, err := Apply(reg, res, Config{Prune: true})
	require.NoError(t, err)

	// Nothing the kept commands reach transitively may be pruned.
	assert.True(t, out.HasType("VkResult"))
	assert.True(t, out.HasType("VkInstance"))
	assert.True(t, out.HasType("VkInstanceCreateInfo"))
	assert.True(t, out.HasType("VkRect2D"))
	assert.True(t, out.HasType("VkExtent2D"))

	// Declared but unreachable from any kept command.
	assert.False(t, out.HasType("VkClearColorValue"))
	assert.False(t, out.HasType("VkBuffer"))
	assert.False(t, out.HasType("VkSampleCountFlags"))
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]byte(`{"supported": ["win32", "wayland"], "prune": true}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"win32", "wayland"}, cfg.Supported)
	assert.True(t, cfg.Prune)

	cfg, err = parseConfig([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Supported)
	assert.False(t, cfg.Prune)

	_, err = parseConfig([]byte(`{"supported": [`))
	assert.Error(t, err)

	_, err = LoadConfig("no-such-file.json")
	assert.Error(t, err)
}
