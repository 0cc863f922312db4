package parser

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T) *Registry {
	t.Helper()
	f, err := os.Open("../testdata/minimal_registry.xml")
	require.NoError(t, err)
	defer f.Close()

	reg, err := Parse(f, DefaultOptions())
	require.NoError(t, err)
	return reg
}

func parseString(t *testing.T, doc string) (*Registry, error) {
	t.Helper()
	return Parse(strings.NewReader(doc), DefaultOptions())
}

func TestParseTypes(t *testing.T) {
	reg := parseFixture(t)

	instance := reg.Type("VkInstance")
	require.NotNil(t, instance)
	assert.Equal(t, KindHandle, instance.Kind)
	assert.True(t, instance.Dispatchable)

	buffer := reg.Type("VkBuffer")
	require.NotNil(t, buffer)
	assert.False(t, buffer.Dispatchable)

	bool32 := reg.Type("VkBool32")
	require.NotNil(t, bool32)
	assert.Equal(t, KindBase, bool32.Kind)
	assert.Equal(t, "uint32_t", bool32.Underlying)

	flags := reg.Type("VkSampleCountFlags")
	require.NotNil(t, flags)
	assert.Equal(t, KindBitmask, flags.Kind)
	assert.Equal(t, "VkSampleCountFlagBits", flags.Underlying)

	rect := reg.Type("VkRect2D")
	require.NotNil(t, rect)
	require.Len(t, rect.Members, 2)
	assert.Equal(t, Member{Name: "extent", Type: "VkExtent2D"}, rect.Members[0])

	props := reg.Type("VkExtensionProperties")
	require.NotNil(t, props)
	assert.Equal(t, "VK_MAX_EXTENSION_NAME_SIZE", props.Members[0].ArrayLen)

	info := reg.Type("VkInstanceCreateInfo")
	require.NotNil(t, info)
	names := info.Members[2]
	assert.Equal(t, "ppEnabledExtensionNames", names.Name)
	assert.Equal(t, 2, names.PointerLevel)
	assert.True(t, names.Const)

	assert.Equal(t, "261", reg.HeaderVersion)
}

func TestParseCommands(t *testing.T) {
	reg := parseFixture(t)

	create := reg.Command("vkCreateInstance")
	require.NotNil(t, create)
	assert.Equal(t, "VkResult", create.ReturnType)
	require.Len(t, create.Params, 2)
	assert.Equal(t, "pCreateInfo", create.Params[0].Name)
	assert.Equal(t, 1, create.Params[0].PointerLevel)
	assert.True(t, create.Params[0].Const)

	alias := reg.Command("vkGetRectInfo2KHR")
	require.NotNil(t, alias)
	assert.Equal(t, "vkGetRectInfo", alias.Alias)

	// Declaration order is preserved for commands.
	for i, name := range []string{"vkCreateInstance", "vkDestroyInstance", "vkGetRectInfo"} {
		assert.Equal(t, i, reg.Command(name).DeclIndex)
	}
}

func TestParseCommandArrayParam(t *testing.T) {
	doc := `<registry><types>
		<type category="handle"><type>VK_DEFINE_HANDLE</type>(<name>VkCommandBuffer</name>)</type>
		</types><commands><command>
		<proto><type>void</type> <name>vkCmdSetBlendConstants</name></proto>
		<param><type>VkCommandBuffer</type> <name>commandBuffer</name></param>
		<param>const <type>float</type> <name>blendConstants</name>[4]</param>
		</command></commands></registry>`
	reg, err := parseString(t, doc)
	require.NoError(t, err)

	cmd := reg.Command("vkCmdSetBlendConstants")
	require.NotNil(t, cmd)
	require.Len(t, cmd.Params, 2)
	blend := cmd.Params[1]
	assert.Equal(t, "4", blend.ArrayLen)
	assert.Equal(t, 0, blend.PointerLevel)
	assert.True(t, blend.Const)
}

func TestParseEnums(t *testing.T) {
	reg := parseFixture(t)

	results := reg.Enums["VkResult"]
	require.NotEmpty(t, results)
	assert.Equal(t, EnumValue{Name: "VK_SUCCESS", Value: "0"}, results[0])

	// bitpos entries are pre-shifted.
	bits := reg.Enums["VkSampleCountFlagBits"]
	require.Len(t, bits, 2)
	assert.Equal(t, "1", bits[0].Value)
	assert.Equal(t, "2", bits[1].Value)

	// Extension-offset values use the 1000000000 encoding, negated by dir.
	var lost *EnumValue
	for i := range results {
		if results[i].Name == "VK_ERROR_XLIB_LOST_KHR" {
			lost = &results[i]
		}
	}
	require.NotNil(t, lost)
	assert.Equal(t, "-1000004000", lost.Value)
	assert.Equal(t, "VK_KHR_xlib_surface", lost.Feature)
}

func TestParseFeatures(t *testing.T) {
	reg := parseFixture(t)

	core := reg.Feature("VK_VERSION_1_0")
	require.NotNil(t, core)
	assert.False(t, core.IsExtension)
	assert.Equal(t, []string{"vkCreateInstance", "vkDestroyInstance", "vkGetRectInfo"}, core.Commands)

	xlib := reg.Feature("VK_KHR_xlib_surface")
	require.NotNil(t, xlib)
	assert.True(t, xlib.IsExtension)
	assert.Equal(t, "xlib", xlib.Platform)
	assert.Equal(t, []string{"vkCreateXlibSurfaceKHR"}, xlib.Commands)
	assert.Contains(t, xlib.Constants, "VK_KHR_XLIB_SURFACE_SPEC_VERSION")
}

func TestParseErrorAttribution(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "undeclared param type",
			doc: `<registry><types></types><commands><command>
				<proto><type>void</type> <name>vkNope</name></proto>
				<param><type>VkMissing</type> <name>thing</name></param>
				</command></commands></registry>`,
			want: "VkMissing",
		},
		{
			name: "feature requires unknown command",
			doc: `<registry><feature api="vulkan" name="VK_VERSION_1_0" number="1.0">
				<require><command name="vkMissing"/></require></feature></registry>`,
			want: "vkMissing",
		},
		{
			name: "extension with undeclared platform",
			doc: `<registry><extensions>
				<extension name="VK_KHR_thing" number="1" platform="mars" supported="vulkan"/>
				</extensions></registry>`,
			want: "mars",
		},
		{
			name: "constant without value",
			doc:  `<registry><enums name="API Constants"><enum name="VK_BROKEN"/></enums></registry>`,
			want: "VK_BROKEN",
		},
		{
			name: "funcpointer with undeclared return type",
			doc: `<registry><types>
				<type category="funcpointer">typedef VkNope* (VKAPI_PTR *<name>PFN_vkBad</name>)(void);</type>
				</types></registry>`,
			want: "VkNope",
		},
		{
			name: "unknown type category",
			doc:  `<registry><types><type category="sprocket" name="VkOdd"/></types></registry>`,
			want: "sprocket",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.doc)
			require.Error(t, err)
			var mr *MalformedRegistryError
			require.ErrorAs(t, err, &mr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAPIProfileSelection(t *testing.T) {
	doc := `<registry><types>
		<type category="basetype" api="vulkansc">typedef <type>uint32_t</type> <name>VkScOnly</name>;</type>
		<type category="basetype" api="vulkan,vulkansc">typedef <type>uint32_t</type> <name>VkShared</name>;</type>
		</types></registry>`
	reg, err := parseString(t, doc)
	require.NoError(t, err)
	assert.Nil(t, reg.Type("VkScOnly"))
	assert.NotNil(t, reg.Type("VkShared"))
}
