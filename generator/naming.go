package generator

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// publicTypeName maps a registry type name to its emitted Go name:
// the Vk prefix drops (VkInstance -> Instance) and funcpointer names take
// the Fn form (PFN_vkVoidFunction -> FnVoidFunction).
func publicTypeName(name string) string {
	if strings.HasPrefix(name, "PFN_vk") {
		return "Fn" + strings.TrimPrefix(name, "PFN_vk")
	}
	if strings.HasPrefix(name, "Vk") {
		return strings.TrimPrefix(name, "Vk")
	}
	return name
}

// publicCommandName strips the vk prefix: vkCreateInstance -> CreateInstance.
func publicCommandName(name string) string {
	return strings.TrimPrefix(name, "vk")
}

// fnTypeName is the function-pointer alias emitted for a command.
func fnTypeName(command string) string {
	return "Fn" + publicCommandName(command)
}

// publicConstName strips the VK_ prefix, keeping the registry's
// screaming-snake form: VK_MAX_EXTENSION_NAME_SIZE -> MAX_EXTENSION_NAME_SIZE.
func publicConstName(name string) string {
	return strings.TrimPrefix(name, "VK_")
}

// exportedField upper-cases the first letter of a registry member name so
// the emitted struct field is exported: sType -> SType, pNext -> PNext.
func exportedField(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// tableTypeName maps a feature-group name to its command-table type:
// VK_VERSION_1_0 -> Version10Commands, VK_KHR_swapchain -> KhrSwapchainCommands.
func tableTypeName(feature string) string {
	trimmed := strings.TrimPrefix(feature, "VK_")
	return strcase.ToCamel(strings.ToLower(trimmed)) + "Commands"
}
